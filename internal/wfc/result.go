package wfc

import (
	"fmt"

	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

// Result is a fully collapsed grid.
type Result struct {
	Width, Height int
	Tiles         []tileset.TileID // Row-major, len = Width*Height
	Stats         Stats
}

// At returns the tile at (x, y).
func (r *Result) At(x, y int) tileset.TileID {
	return r.Tiles[y*r.Width+x]
}

// Rows returns the grid as Height rows of Width tiles.
func (r *Result) Rows() [][]tileset.TileID {
	rows := make([][]tileset.TileID, r.Height)
	for y := range rows {
		rows[y] = r.Tiles[y*r.Width : (y+1)*r.Width : (y+1)*r.Width]
	}
	return rows
}

// Names returns the grid as rows of tile names.
func (r *Result) Names(b *tileset.Bundle) [][]string {
	rows := make([][]string, r.Height)
	for y := range rows {
		rows[y] = make([]string, r.Width)
		for x := range rows[y] {
			rows[y][x] = b.Name(r.At(x, y))
		}
	}
	return rows
}

// Verify checks that every cell holds a known tile and that every pair of
// adjacent tiles is permitted: for a tile A with neighbor B in direction D,
// B must accept A in the reverse of D.
func Verify(b *tileset.Bundle, width, height int, tiles []tileset.TileID) error {
	if width <= 0 || height <= 0 || len(tiles) != width*height {
		return fmt.Errorf("%w: %dx%d with %d tiles", ErrInvalidSize, width, height, len(tiles))
	}

	for i, id := range tiles {
		if id < 0 || int(id) >= b.Len() {
			return fmt.Errorf("%w: cell (%d, %d) holds tile %d", tileset.ErrMissingTile, i%width, i/width, id)
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a := tiles[y*width+x]
			for d := 0; d < b.NumDirections(); d++ {
				dir := b.Direction(tileset.Direction(d))
				nx, ny := x+dir.DX, y+dir.DY
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				n := tiles[ny*width+nx]
				if !b.Permits(n, dir.Reverse, a) {
					return fmt.Errorf("%w: %s at (%d, %d) next to %s at (%d, %d) (%s)",
						ErrContradiction, b.Name(a), x, y, b.Name(n), nx, ny, dir.Name)
				}
			}
		}
	}
	return nil
}

package wfc

import (
	"math"

	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

// Cell is one grid position during solving.
//
// Possible is sorted by TileID and is never modified in place: every
// narrowing installs a fresh slice, so undo records can hold the old slice
// without copying it.
type Cell struct {
	X, Y      int
	Possible  []tileset.TileID // Tiles still viable for this cell
	Collapsed bool             // Whether the cell has been assigned
	Tile      tileset.TileID   // The assigned tile (NoTile until collapsed)
	entropy   float64
}

// Entropy returns ln of the summed weights of the possible tiles, or 0 once
// the cell is collapsed.
func (c *Cell) Entropy() float64 {
	if c.Collapsed {
		return 0
	}
	return c.entropy
}

// entropyOf computes ln(sum of weights). An empty set yields -Inf, which
// makes an exhausted cell the next selection so the solver backtracks.
func entropyOf(b *tileset.Bundle, possible []tileset.TileID) float64 {
	total := 0.0
	for _, id := range possible {
		total += b.Weight(id)
	}
	return math.Log(total)
}

// without returns a new slice holding possible minus tile.
func without(possible []tileset.TileID, tile tileset.TileID) []tileset.TileID {
	out := make([]tileset.TileID, 0, len(possible))
	for _, id := range possible {
		if id != tile {
			out = append(out, id)
		}
	}
	return out
}

// Grid is a flat arena of cells addressed by y*Width + x.
type Grid struct {
	Width, Height int
	Cells         []Cell
}

// newGrid creates a grid where every cell may hold any tile.
func newGrid(b *tileset.Bundle, width, height int) *Grid {
	all := b.IDs()
	initial := entropyOf(b, all)

	g := &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Cells[y*width+x] = Cell{
				X:        x,
				Y:        y,
				Possible: all,
				Tile:     tileset.NoTile,
				entropy:  initial,
			}
		}
	}
	return g
}

// index returns the arena index of (x, y), or -1 when out of bounds.
func (g *Grid) index(x, y int) int {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return -1
	}
	return y*g.Width + x
}

// At returns the cell at (x, y), or nil when out of bounds.
func (g *Grid) At(x, y int) *Cell {
	i := g.index(x, y)
	if i < 0 {
		return nil
	}
	return &g.Cells[i]
}

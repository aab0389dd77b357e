package dungeon

import (
	"errors"
	"image"

	"github.com/lawnchairsociety/thornwood/internal/database"
	"github.com/lawnchairsociety/thornwood/internal/logger"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
	"github.com/lawnchairsociety/thornwood/internal/wfc"
)

// GridStore persists solved room grids. Grids are keyed by tileset
// fingerprint, base seed and room coordinate, so a hit is always the grid
// the solver would have produced.
type GridStore interface {
	LoadRoomGrid(fingerprint string, baseSeed int64, x, y int) (*database.RoomGrid, error)
	SaveRoomGrid(grid *database.RoomGrid) error
}

// loadCached returns the stored grid for p. Store failures and stale rows
// are logged and treated as a miss.
func (g *Graph) loadCached(p image.Point) ([]tileset.TileID, bool) {
	if g.opts.Store == nil {
		return nil, false
	}

	grid, err := g.opts.Store.LoadRoomGrid(g.bundle.Fingerprint(), g.opts.Seed, p.X, p.Y)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger.Warning("Room grid lookup failed", "x", p.X, "y", p.Y, "error", err)
		}
		return nil, false
	}

	if grid.Width != g.opts.RoomWidth || grid.Height != g.opts.RoomHeight || len(grid.Tiles) != grid.Width*grid.Height {
		logger.Warning("Ignoring stored room grid with wrong size",
			"x", p.X, "y", p.Y, "width", grid.Width, "height", grid.Height)
		return nil, false
	}

	tiles := make([]tileset.TileID, len(grid.Tiles))
	for i, name := range grid.Tiles {
		id, err := g.bundle.ID(name)
		if err != nil {
			logger.Warning("Ignoring stored room grid", "x", p.X, "y", p.Y, "error", err)
			return nil, false
		}
		tiles[i] = id
	}

	if err := wfc.Verify(g.bundle, grid.Width, grid.Height, tiles); err != nil {
		logger.Warning("Ignoring stored room grid", "x", p.X, "y", p.Y, "error", err)
		return nil, false
	}
	return tiles, true
}

// storeGrid saves a freshly solved grid. Failures are logged and ignored.
func (g *Graph) storeGrid(p image.Point, tiles []tileset.TileID) {
	if g.opts.Store == nil {
		return
	}

	names := make([]string, len(tiles))
	for i, id := range tiles {
		names[i] = g.bundle.Name(id)
	}

	grid := &database.RoomGrid{
		Fingerprint: g.bundle.Fingerprint(),
		BaseSeed:    g.opts.Seed,
		X:           p.X,
		Y:           p.Y,
		Width:       g.opts.RoomWidth,
		Height:      g.opts.RoomHeight,
		Tiles:       names,
	}
	if err := g.opts.Store.SaveRoomGrid(grid); err != nil {
		logger.Warning("Failed to store room grid", "x", p.X, "y", p.Y, "error", err)
	}
}

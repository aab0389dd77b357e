package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no grid is stored for a key.
var ErrNotFound = errors.New("room grid not found")

// RoomGrid is a solved room grid, tiles stored by name in row-major order.
type RoomGrid struct {
	ID          int64
	Fingerprint string // Tileset fingerprint the grid was solved with
	BaseSeed    int64
	X, Y        int
	Width       int
	Height      int
	Tiles       []string
	CreatedAt   time.Time
}

// SaveRoomGrid inserts a grid, replacing any grid stored under the same key.
func (d *Database) SaveRoomGrid(g *RoomGrid) error {
	if g.Fingerprint == "" {
		return errors.New("fingerprint cannot be empty")
	}
	if g.Width <= 0 || g.Height <= 0 || len(g.Tiles) != g.Width*g.Height {
		return fmt.Errorf("grid %dx%d has %d tiles", g.Width, g.Height, len(g.Tiles))
	}
	for _, name := range g.Tiles {
		if name == "" || strings.Contains(name, ",") {
			return fmt.Errorf("invalid tile name %q", name)
		}
	}

	_, err := d.db.Exec(d.qb.Build(`
		INSERT INTO room_grids (fingerprint, base_seed, x, y, width, height, tiles)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint, base_seed, x, y)
		DO UPDATE SET width = excluded.width, height = excluded.height, tiles = excluded.tiles`),
		g.Fingerprint, g.BaseSeed, g.X, g.Y, g.Width, g.Height, strings.Join(g.Tiles, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to save room grid: %w", err)
	}
	return nil
}

// LoadRoomGrid retrieves the grid stored for a tileset, seed and room.
func (d *Database) LoadRoomGrid(fingerprint string, baseSeed int64, x, y int) (*RoomGrid, error) {
	var g RoomGrid
	var tiles string

	err := d.db.QueryRow(d.qb.Build(
		"SELECT id, fingerprint, base_seed, x, y, width, height, tiles, created_at FROM room_grids WHERE fingerprint = ? AND base_seed = ? AND x = ? AND y = ?"),
		fingerprint, baseSeed, x, y,
	).Scan(&g.ID, &g.Fingerprint, &g.BaseSeed, &g.X, &g.Y, &g.Width, &g.Height, &tiles, &g.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load room grid: %w", err)
	}

	if tiles != "" {
		g.Tiles = strings.Split(tiles, ",")
	}
	return &g, nil
}

// CountRoomGrids returns how many grids are stored for a tileset and seed.
func (d *Database) CountRoomGrids(fingerprint string, baseSeed int64) (int, error) {
	var count int
	err := d.db.QueryRow(d.qb.Build(
		"SELECT COUNT(*) FROM room_grids WHERE fingerprint = ? AND base_seed = ?"),
		fingerprint, baseSeed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count room grids: %w", err)
	}
	return count, nil
}

// DeleteRoomGrids removes every grid stored for a tileset and seed and
// returns how many were removed.
func (d *Database) DeleteRoomGrids(fingerprint string, baseSeed int64) (int64, error) {
	result, err := d.db.Exec(d.qb.Build(
		"DELETE FROM room_grids WHERE fingerprint = ? AND base_seed = ?"),
		fingerprint, baseSeed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete room grids: %w", err)
	}
	return result.RowsAffected()
}

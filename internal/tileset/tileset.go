// Package tileset holds the immutable tile universe, direction set and
// adjacency preferences shared by every generation run.
package tileset

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrMissingTile         = errors.New("tileset: tile not defined in tile universe")
	ErrInvalidDirections   = errors.New("tileset: invalid direction set")
	ErrInvalidWeight       = errors.New("tileset: invalid weight")
	ErrEmptyTileUniverse   = errors.New("tileset: no tiles defined")
	ErrAsymmetricAdjacency = errors.New("tileset: adjacency table is not symmetric")
)

// TileID is an interned tile identifier. IDs are assigned in sorted name
// order, so comparing IDs orders tiles the same way as comparing names.
type TileID int

// NoTile marks an unresolved cell.
const NoTile TileID = -1

// TileSpec describes one tile of the universe.
type TileSpec struct {
	ID          TileID
	Name        string
	Weight      float64 // Relative selection probability, always > 0
	Generatable bool    // Props may be placed on this tile
	Collidable  bool    // Blocks movement
	Glyph       string  // Single character used by text dumps
}

// Direction indexes the bundle's direction table. Directions are sorted by
// name, which is the order propagation visits them in.
type Direction int

// DirectionSpec is a named grid offset with its reverse.
type DirectionSpec struct {
	Name    string
	DX, DY  int
	Reverse Direction
}

// Bundle is the validated, read-only configuration consumed by the solver
// and the room graph. It is safe for concurrent use.
type Bundle struct {
	tiles       []TileSpec
	index       map[string]TileID
	directions  []DirectionSpec
	dirIndex    map[string]Direction
	adjacency   [][][]float64 // [tile][direction][neighbor]
	fingerprint string
}

// Len returns the number of tiles in the universe.
func (b *Bundle) Len() int {
	return len(b.tiles)
}

// Tile returns the spec for id.
func (b *Bundle) Tile(id TileID) TileSpec {
	return b.tiles[id]
}

// Tiles returns a copy of every tile spec in ID order.
func (b *Bundle) Tiles() []TileSpec {
	out := make([]TileSpec, len(b.tiles))
	copy(out, b.tiles)
	return out
}

// IDs returns every tile ID in ascending order.
func (b *Bundle) IDs() []TileID {
	ids := make([]TileID, len(b.tiles))
	for i := range b.tiles {
		ids[i] = TileID(i)
	}
	return ids
}

// Lookup returns the ID for a tile name.
func (b *Bundle) Lookup(name string) (TileID, bool) {
	id, ok := b.index[name]
	return id, ok
}

// ID is Lookup returning ErrMissingTile for unknown names.
func (b *Bundle) ID(name string) (TileID, error) {
	id, ok := b.index[name]
	if !ok {
		return NoTile, fmt.Errorf("%w: %q", ErrMissingTile, name)
	}
	return id, nil
}

// Name returns the tile name for id, or "" for NoTile.
func (b *Bundle) Name(id TileID) string {
	if id < 0 || int(id) >= len(b.tiles) {
		return ""
	}
	return b.tiles[id].Name
}

// Weight returns the selection weight of id.
func (b *Bundle) Weight(id TileID) float64 {
	return b.tiles[id].Weight
}

// NumDirections returns the size of the direction set.
func (b *Bundle) NumDirections() int {
	return len(b.directions)
}

// Direction returns the spec of direction d.
func (b *Bundle) Direction(d Direction) DirectionSpec {
	return b.directions[d]
}

// Directions returns a copy of the direction table in name order.
func (b *Bundle) Directions() []DirectionSpec {
	out := make([]DirectionSpec, len(b.directions))
	copy(out, b.directions)
	return out
}

// LookupDirection returns the direction with the given name.
func (b *Bundle) LookupDirection(name string) (Direction, bool) {
	d, ok := b.dirIndex[name]
	return d, ok
}

// Preference returns how strongly tile a accepts neighbor in direction d.
// Zero means the pair is forbidden.
func (b *Bundle) Preference(a TileID, d Direction, neighbor TileID) float64 {
	return b.adjacency[a][d][neighbor]
}

// Permits reports whether tile a accepts neighbor in direction d.
func (b *Bundle) Permits(a TileID, d Direction, neighbor TileID) bool {
	return b.adjacency[a][d][neighbor] > 0
}

// Fingerprint returns a stable hex digest of the bundle contents.
func (b *Bundle) Fingerprint() string {
	return b.fingerprint
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

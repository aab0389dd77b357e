// Package dungeon ties the macro noise map to per-room tile generation.
// Rooms exist only at passable map coordinates and are generated the first
// time they are requested.
package dungeon

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lawnchairsociety/thornwood/internal/logger"
	"github.com/lawnchairsociety/thornwood/internal/noise"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
	"github.com/lawnchairsociety/thornwood/internal/wfc"
)

var ErrNoRoom = errors.New("dungeon: no room at coordinate")

// Default room dimensions in tiles.
const (
	DefaultRoomWidth  = 50
	DefaultRoomHeight = 50
)

// Options configures room generation for a Graph.
type Options struct {
	Seed       int64
	RoomWidth  int
	RoomHeight int
	MaxSteps   int       // Solver step cap per room, 0 = unlimited
	GoalTiles  []string  // Tile names the goal marker may sit on
	Store      GridStore // Optional cache of solved room grids
}

// DefaultOptions returns the options of the standard Thornwood dungeon.
func DefaultOptions(seed int64) Options {
	return Options{
		Seed:       seed,
		RoomWidth:  DefaultRoomWidth,
		RoomHeight: DefaultRoomHeight,
		GoalTiles:  []string{"grass_plain", "grass_small"},
	}
}

// Cardinal room-to-room moves.
var (
	North = image.Point{X: 0, Y: -1}
	South = image.Point{X: 0, Y: 1}
	East  = image.Point{X: 1, Y: 0}
	West  = image.Point{X: -1, Y: 0}
)

// moves is the neighbor visiting order used by Neighbors.
var moves = []image.Point{North, East, South, West}

// Graph is the room graph over a macro map.
type Graph struct {
	bundle    *tileset.Bundle
	noiseMap  *noise.Map
	opts      Options
	goalTiles []tileset.TileID

	coords []image.Point
	index  map[image.Point]struct{}
	spawn  image.Point
	goal   image.Point

	rooms  map[image.Point]*Room
	mu     sync.RWMutex
	flight singleflight.Group // one generation in flight per coordinate
}

// NewGraph builds the room graph for m. Spawn and goal are picked from the
// sorted room list with a generator seeded by the base seed, so the same
// seed and map always yield the same pair.
func NewGraph(bundle *tileset.Bundle, m *noise.Map, opts Options) (*Graph, error) {
	if opts.RoomWidth <= 0 || opts.RoomHeight <= 0 {
		return nil, fmt.Errorf("%w: room %dx%d", wfc.ErrInvalidSize, opts.RoomWidth, opts.RoomHeight)
	}

	goalTiles := make([]tileset.TileID, 0, len(opts.GoalTiles))
	for _, name := range opts.GoalTiles {
		id, err := bundle.ID(name)
		if err != nil {
			return nil, fmt.Errorf("goal tile: %w", err)
		}
		goalTiles = append(goalTiles, id)
	}

	coords := m.Points()
	if len(coords) == 0 {
		return nil, noise.ErrEmptyRegionSet
	}

	g := &Graph{
		bundle:    bundle,
		noiseMap:  m,
		opts:      opts,
		goalTiles: goalTiles,
		coords:    coords,
		index:     make(map[image.Point]struct{}, len(coords)),
		rooms:     make(map[image.Point]*Room),
	}
	for _, p := range coords {
		g.index[p] = struct{}{}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	g.spawn = coords[rng.Intn(len(coords))]
	g.goal = g.spawn
	if len(coords) > 1 {
		available := make([]image.Point, 0, len(coords)-1)
		for _, p := range coords {
			if p != g.spawn {
				available = append(available, p)
			}
		}
		g.goal = available[rng.Intn(len(available))]
	}

	logger.Info("Room graph built",
		"seed", opts.Seed,
		"rooms", len(coords),
		"corridors", m.Corridors(),
		"spawn", g.spawn,
		"goal", g.goal)

	return g, nil
}

// RoomSeed derives the per-room seed, reduced into [0, 2^32).
func RoomSeed(base int64, p image.Point) int64 {
	// Low 32 bits of the wrapped 64-bit sum equal the true sum mod 2^32
	s := uint64(base)*73856093 + uint64(int64(p.X))*19349663 + uint64(int64(p.Y))*83492791
	return int64(uint32(s))
}

// Seed returns the base seed.
func (g *Graph) Seed() int64 {
	return g.opts.Seed
}

// Bundle returns the tileset used for every room.
func (g *Graph) Bundle() *tileset.Bundle {
	return g.bundle
}

// Map returns the macro map the graph was built from.
func (g *Graph) Map() *noise.Map {
	return g.noiseMap
}

// Rooms returns every room coordinate sorted by (x, y).
func (g *Graph) Rooms() []image.Point {
	out := make([]image.Point, len(g.coords))
	copy(out, g.coords)
	return out
}

// Spawn returns the spawn room coordinate.
func (g *Graph) Spawn() image.Point {
	return g.spawn
}

// Goal returns the goal room coordinate.
func (g *Graph) Goal() image.Point {
	return g.goal
}

// Contains reports whether a room exists at p.
func (g *Graph) Contains(p image.Point) bool {
	_, ok := g.index[p]
	return ok
}

// Move returns the room reached by stepping delta from from, or false when
// no room exists there.
func (g *Graph) Move(from, delta image.Point) (image.Point, bool) {
	to := from.Add(delta)
	if !g.Contains(to) {
		return from, false
	}
	return to, true
}

// Neighbors returns the rooms 4-adjacent to p, sorted by (x, y).
func (g *Graph) Neighbors(p image.Point) []image.Point {
	var out []image.Point
	for _, d := range moves {
		if n := p.Add(d); g.Contains(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Materialized returns how many rooms have been generated so far.
func (g *Graph) Materialized() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// RoomAt returns the room at p, generating it on first access.
func (g *Graph) RoomAt(p image.Point) (*Room, error) {
	if !g.Contains(p) {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrNoRoom, p.X, p.Y)
	}

	if room, ok := g.cachedRoom(p); ok {
		return room, nil
	}

	v, err, _ := g.flight.Do(fmt.Sprintf("%d,%d", p.X, p.Y), func() (any, error) {
		return g.generateRoom(p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Room), nil
}

func (g *Graph) cachedRoom(p image.Point) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[p]
	return room, ok
}

// generateRoom materializes the room at p. Callers for the same coordinate
// share one call through g.flight.
func (g *Graph) generateRoom(p image.Point) (*Room, error) {
	// A previous flight may have finished between the cache miss and Do
	if room, ok := g.cachedRoom(p); ok {
		return room, nil
	}

	start := time.Now()
	seed := RoomSeed(g.opts.Seed, p)

	tiles, stats, cached, err := g.solveRoom(p, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to generate room (%d, %d): %w", p.X, p.Y, err)
	}

	room := newRoom(g.bundle, p, seed, g.opts.RoomWidth, g.opts.RoomHeight, tiles)
	room.Stats = stats
	room.Cached = cached
	room.IsSpawn = p == g.spawn
	room.IsGoal = p == g.goal
	room.populate(g.goalTiles)

	g.mu.Lock()
	g.rooms[p] = room
	g.mu.Unlock()

	logger.Info("Room materialized",
		"x", p.X,
		"y", p.Y,
		"seed", seed,
		"cached", cached,
		"decisions", stats.Decisions,
		"backtracks", stats.Backtracks,
		"props", len(room.Props),
		"enemies", len(room.Enemies),
		"duration", time.Since(start))

	return room, nil
}

// solveRoom returns the tile grid for p, from the store when possible.
func (g *Graph) solveRoom(p image.Point, seed int64) ([]tileset.TileID, wfc.Stats, bool, error) {
	if tiles, ok := g.loadCached(p); ok {
		return tiles, wfc.Stats{}, true, nil
	}

	var opts []wfc.Option
	if g.opts.MaxSteps > 0 {
		opts = append(opts, wfc.WithMaxSteps(g.opts.MaxSteps))
	}
	solver, err := wfc.NewSolver(g.bundle, g.opts.RoomWidth, g.opts.RoomHeight, seed, opts...)
	if err != nil {
		return nil, wfc.Stats{}, false, err
	}
	result, err := solver.Solve()
	if err != nil {
		return nil, solver.Stats(), false, err
	}

	g.storeGrid(p, result.Tiles)
	return result.Tiles, result.Stats, false, nil
}

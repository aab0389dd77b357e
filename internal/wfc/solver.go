// Package wfc fills a tile grid with Wave Function Collapse: minimum-entropy
// selection, weighted tile choice, constraint propagation and chronological
// backtracking with full state rollback.
package wfc

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"sort"

	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

var (
	ErrUnsatisfiable = errors.New("wfc: failed to collapse the grid, no solution possible")
	ErrContradiction = errors.New("wfc: contradiction - no valid tiles for cell")
	ErrMaxSteps      = errors.New("wfc: exceeded maximum steps")
	ErrInvalidSize   = errors.New("wfc: invalid grid size")
)

// Stats counts solver events for one run.
type Stats struct {
	Decisions  int // Cells collapsed by a weighted choice
	Conflicts  int // Decisions whose propagation emptied a neighbor
	Backtracks int // Prior decisions undone
}

// Option configures a Solver.
type Option func(*Solver)

// WithFixed pins cells to named tiles before solving starts.
func WithFixed(cells map[image.Point]string) Option {
	return func(s *Solver) {
		s.fixed = cells
	}
}

// WithMaxSteps stops the run with ErrMaxSteps after n main-loop iterations.
// Zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(s *Solver) {
		s.maxSteps = n
	}
}

// Solver implements the Wave Function Collapse algorithm for one room grid.
// A Solver is single-use and not safe for concurrent use.
type Solver struct {
	Width, Height int
	Grid          *Grid
	Bundle        *tileset.Bundle
	rng           *rand.Rand

	fixed    map[image.Point]string
	maxSteps int

	// Backtracking history, one batch per successful decision
	history []batch
	stats   Stats

	// Propagation scratch space, indexed like Grid.Cells
	queued []bool
}

// NewSolver creates a solver for a width x height grid seeded with seed.
func NewSolver(bundle *tileset.Bundle, width, height int, seed int64, opts ...Option) (*Solver, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if bundle == nil || bundle.Len() == 0 {
		return nil, tileset.ErrEmptyTileUniverse
	}

	s := &Solver{
		Width:  width,
		Height: height,
		Grid:   newGrid(bundle, width, height),
		Bundle: bundle,
		rng:    rand.New(rand.NewSource(seed)),
		queued: make([]bool, width*height),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Stats returns the counters accumulated so far.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Solve runs the solver until every cell is collapsed.
func (s *Solver) Solve() (*Result, error) {
	if err := s.applyFixed(); err != nil {
		return nil, err
	}

	for step := 0; ; step++ {
		if s.maxSteps > 0 && step >= s.maxSteps {
			return nil, fmt.Errorf("%w (%d)", ErrMaxSteps, s.maxSteps)
		}

		i, ok := s.selectCell()
		if !ok {
			break
		}
		if err := s.decide(i); err != nil {
			return nil, err
		}
	}

	return s.result(), nil
}

// selectCell picks an uncollapsed cell of minimum entropy. Ties are
// gathered in (row, column) order and broken with the seeded generator.
func (s *Solver) selectCell() (int, bool) {
	var ties []int
	var best float64

	for i := range s.Grid.Cells {
		c := &s.Grid.Cells[i]
		if c.Collapsed {
			continue
		}
		e := c.Entropy()
		switch {
		case len(ties) == 0 || e < best:
			best = e
			ties = append(ties[:0], i)
		case e == best:
			ties = append(ties, i)
		}
	}

	if len(ties) == 0 {
		return 0, false
	}
	return ties[s.rng.Intn(len(ties))], true
}

// pickTile draws a tile from the cell's possible set proportionally to
// weight.
func (s *Solver) pickTile(c *Cell) (tileset.TileID, bool) {
	if len(c.Possible) == 0 {
		return tileset.NoTile, false
	}

	total := 0.0
	for _, id := range c.Possible {
		total += s.Bundle.Weight(id)
	}

	r := s.rng.Float64() * total
	for _, id := range c.Possible {
		r -= s.Bundle.Weight(id)
		if r < 0 {
			return id, true
		}
	}
	return c.Possible[len(c.Possible)-1], true
}

// decide collapses cell i and propagates. A conflict removes the chosen
// tile from the cell; an exhausted cell unwinds one prior decision.
func (s *Solver) decide(i int) error {
	c := &s.Grid.Cells[i]

	tile, ok := s.pickTile(c)
	if !ok {
		return s.backtrack()
	}

	var b batch
	s.Grid.record(&b, i)
	s.collapse(c, tile)
	s.stats.Decisions++

	if s.propagate(i, &b) {
		s.history = append(s.history, b)
		return nil
	}

	s.stats.Conflicts++
	s.Grid.undo(b)
	c.Possible = without(c.Possible, tile)
	c.Collapsed = false
	c.Tile = tileset.NoTile
	c.entropy = entropyOf(s.Bundle, c.Possible)

	if len(c.Possible) == 0 {
		return s.backtrack()
	}
	return nil
}

// backtrack undoes the most recent successful decision.
func (s *Solver) backtrack() error {
	if len(s.history) == 0 {
		return ErrUnsatisfiable
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.Grid.undo(last)
	s.stats.Backtracks++
	return nil
}

// collapse assigns tile to c.
func (s *Solver) collapse(c *Cell, tile tileset.TileID) {
	c.Possible = []tileset.TileID{tile}
	c.Collapsed = true
	c.Tile = tile
	c.entropy = 0
}

// propagate narrows neighbors breadth-first starting at cell start,
// recording every change in b. It returns false when a neighbor would be
// left with no possible tile.
func (s *Solver) propagate(start int, b *batch) bool {
	queue := []int{start}
	s.queued[start] = true
	defer func() {
		for _, i := range queue {
			s.queued[i] = false
		}
	}()

	for len(queue) > 0 {
		// Index order is (row, column) order
		sort.Ints(queue)
		cur := queue[0]
		queue = queue[1:]
		s.queued[cur] = false

		current := &s.Grid.Cells[cur]
		for d := 0; d < s.Bundle.NumDirections(); d++ {
			dir := s.Bundle.Direction(tileset.Direction(d))
			ni := s.Grid.index(current.X+dir.DX, current.Y+dir.DY)
			if ni < 0 {
				continue
			}
			neighbor := &s.Grid.Cells[ni]
			if neighbor.Collapsed {
				continue
			}

			narrowed := s.compatible(neighbor.Possible, current.Possible, dir.Reverse)
			if len(narrowed) == len(neighbor.Possible) {
				continue
			}
			if len(narrowed) == 0 {
				return false
			}

			s.Grid.record(b, ni)
			neighbor.Possible = narrowed
			neighbor.entropy = entropyOf(s.Bundle, narrowed)

			if !s.queued[ni] {
				s.queued[ni] = true
				queue = append(queue, ni)
			}
		}
	}
	return true
}

// compatible returns the candidates that accept at least one of sources in
// direction rev, preserving sorted order.
func (s *Solver) compatible(candidates, sources []tileset.TileID, rev tileset.Direction) []tileset.TileID {
	out := make([]tileset.TileID, 0, len(candidates))
	for _, nt := range candidates {
		for _, ct := range sources {
			if s.Bundle.Permits(nt, rev, ct) {
				out = append(out, nt)
				break
			}
		}
	}
	return out
}

// applyFixed collapses pinned cells in (row, column) order before the main
// loop. These assignments are not part of the backtracking history.
func (s *Solver) applyFixed() error {
	if len(s.fixed) == 0 {
		return nil
	}

	points := make([]image.Point, 0, len(s.fixed))
	for p := range s.fixed {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})

	for _, p := range points {
		name := s.fixed[p]
		tile, err := s.Bundle.ID(name)
		if err != nil {
			return err
		}
		i := s.Grid.index(p.X, p.Y)
		if i < 0 {
			return fmt.Errorf("%w: fixed cell %v outside %dx%d grid", ErrInvalidSize, p, s.Width, s.Height)
		}

		c := &s.Grid.Cells[i]
		if !containsTile(c.Possible, tile) {
			return fmt.Errorf("%w: fixed tile %q not possible at %v", ErrContradiction, name, p)
		}
		s.collapse(c, tile)

		var scratch batch
		if !s.propagate(i, &scratch) {
			return fmt.Errorf("%w: fixed tile %q at %v", ErrContradiction, name, p)
		}
	}
	return nil
}

func containsTile(possible []tileset.TileID, tile tileset.TileID) bool {
	for _, id := range possible {
		if id == tile {
			return true
		}
	}
	return false
}

// result extracts the collapsed grid.
func (s *Solver) result() *Result {
	tiles := make([]tileset.TileID, len(s.Grid.Cells))
	for i := range s.Grid.Cells {
		tiles[i] = s.Grid.Cells[i].Tile
	}
	return &Result{
		Width:  s.Width,
		Height: s.Height,
		Tiles:  tiles,
		Stats:  s.stats,
	}
}

// Package noise generates the macro room layout: a circular cellular
// automaton map whose passable regions are joined by carved corridors.
package noise

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/aquilax/go-perlin"
)

var (
	ErrEmptyRegionSet = errors.New("noise: map has no passable cells")
	ErrInvalidParams  = errors.New("noise: invalid parameters")
)

// Fill selects how the initial noise is seeded inside the circular mask.
type Fill string

const (
	FillRandom Fill = "random"
	FillPerlin Fill = "perlin"
)

// Params controls map generation.
type Params struct {
	Width, Height     int
	Seed              int64
	Density           int  // Initial fill percentage, 0-100
	WallThreshold     int  // Blocked 8-neighbors above which a cell becomes blocked
	Iterations        int  // Smoothing passes
	CorridorHalfWidth int  // Cells carved on each side of a corridor line (0 means 1)
	Fill              Fill // Initial fill strategy (default random)
}

// DefaultParams returns the parameters of the standard Thornwood map.
func DefaultParams(seed int64) Params {
	return Params{
		Width:             100,
		Height:            100,
		Seed:              seed,
		Density:           45,
		WallThreshold:     4,
		Iterations:        6,
		CorridorHalfWidth: 1,
		Fill:              FillRandom,
	}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if p.Density < 0 || p.Density > 100 {
		return fmt.Errorf("%w: density %d not in 0-100", ErrInvalidParams, p.Density)
	}
	if p.WallThreshold < 0 || p.Iterations < 0 || p.CorridorHalfWidth < 0 {
		return fmt.Errorf("%w: negative threshold, iterations or corridor width", ErrInvalidParams)
	}
	switch p.Fill {
	case "", FillRandom, FillPerlin:
	default:
		return fmt.Errorf("%w: unknown fill %q", ErrInvalidParams, p.Fill)
	}
	return nil
}

// Map is a passable/blocked grid at room granularity. It is read-only once
// Generate returns.
type Map struct {
	width, height int
	cells         []bool // true = passable
	mask          []bool // true = inside the circular silhouette
	corridors     int
}

// Generate builds a map that forms a single connected region.
func Generate(p Params) (*Map, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	m := newMap(p.Width, p.Height)
	switch p.Fill {
	case FillPerlin:
		m.fillPerlin(p.Seed, p.Density)
	default:
		m.fillRandom(p.Seed, p.Density)
	}

	for i := 0; i < p.Iterations; i++ {
		m.smooth(p.WallThreshold)
	}

	if err := m.connect(p.CorridorHalfWidth); err != nil {
		return nil, err
	}
	return m, nil
}

// FromRows builds a map from rows of '.' (passable) and '#' (blocked), the
// format String produces. The map is used as given, without connectivity
// repair, and has no circular mask.
func FromRows(rows []string) (*Map, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrInvalidParams)
	}

	width := len(rows[0])
	m := &Map{
		width:  width,
		height: len(rows),
		cells:  make([]bool, width*len(rows)),
		mask:   make([]bool, width*len(rows)),
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidParams, y, len(row), width)
		}
		for x := 0; x < width; x++ {
			switch row[x] {
			case '.':
				m.cells[y*width+x] = true
			case '#':
			default:
				return nil, fmt.Errorf("%w: unexpected %q at (%d, %d)", ErrInvalidParams, row[x], x, y)
			}
		}
	}
	return m, nil
}

// newMap creates an all-blocked map and computes its circular mask.
func newMap(width, height int) *Map {
	m := &Map{
		width:  width,
		height: height,
		cells:  make([]bool, width*height),
		mask:   make([]bool, width*height),
	}

	cx := float64(width) / 2
	cy := float64(height) / 2
	radius := 0.5 * math.Min(float64(width), float64(height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.mask[y*width+x] = math.Hypot(float64(x)-cx, float64(y)-cy) <= radius
		}
	}
	return m
}

// fillRandom marks masked cells passable with probability density/100.
func (m *Map) fillRandom(seed int64, density int) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.cells {
		if !m.mask[i] {
			continue
		}
		m.cells[i] = rng.Intn(100)+1 < density
	}
}

// fillPerlin marks masked cells passable where 2-D Perlin noise, rescaled
// to 0-100, falls below density.
func (m *Map) fillPerlin(seed int64, density int) {
	gen := perlin.NewPerlin(2, 2, 3, seed)
	const scale = 0.1
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := y*m.width + x
			if !m.mask[i] {
				continue
			}
			v := gen.Noise2D(float64(x)*scale, float64(y)*scale)
			// Noise2D is roughly in [-1, 1]
			m.cells[i] = (v+1)*50 < float64(density)
		}
	}
}

// smooth runs one cellular automaton pass into a fresh buffer.
func (m *Map) smooth(threshold int) {
	next := make([]bool, len(m.cells))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := y*m.width + x
			if !m.mask[i] {
				continue
			}
			next[i] = m.blockedNeighbors(x, y) <= threshold
		}
	}
	m.cells = next
}

// blockedNeighbors counts blocked cells in the 8-neighborhood, treating
// out-of-bounds cells as blocked.
func (m *Map) blockedNeighbors(x, y int) int {
	walls := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !m.Passable(x+dx, y+dy) {
				walls++
			}
		}
	}
	return walls
}

// Width returns the map width.
func (m *Map) Width() int {
	return m.width
}

// Height returns the map height.
func (m *Map) Height() int {
	return m.height
}

// Passable reports whether (x, y) is walkable. Out-of-bounds is blocked.
func (m *Map) Passable(x, y int) bool {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return false
	}
	return m.cells[y*m.width+x]
}

// Count returns the number of passable cells.
func (m *Map) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Corridors returns how many corridors connectivity repair carved.
func (m *Map) Corridors() int {
	return m.corridors
}

// Points returns every passable coordinate sorted by (x, y).
func (m *Map) Points() []image.Point {
	var pts []image.Point
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.cells[y*m.width+x] {
				pts = append(pts, image.Point{X: x, Y: y})
			}
		}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	return pts
}

// String renders the map with '.' for passable and '#' for blocked cells.
func (m *Map) String() string {
	var sb strings.Builder
	sb.Grow((m.width + 1) * m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.cells[y*m.width+x] {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

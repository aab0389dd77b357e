package noise

import (
	"image"
	"math"

	"github.com/zyedidia/generic/mapset"
)

// Region is a maximal 4-connected set of passable cells, in flood-fill
// discovery order.
type Region []image.Point

// cardinal lists flood-fill neighbor offsets in visiting order.
var cardinal = []image.Point{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1}}

// Regions enumerates passable regions, scanning seeds in row-major order.
func (m *Map) Regions() []Region {
	visited := mapset.New[image.Point]()
	var regions []Region

	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			p := image.Point{X: x, Y: y}
			if !m.Passable(x, y) || visited.Has(p) {
				continue
			}
			regions = append(regions, m.floodFill(p, visited))
		}
	}
	return regions
}

// floodFill collects the region containing start with an explicit stack.
func (m *Map) floodFill(start image.Point, visited mapset.Set[image.Point]) Region {
	var region Region
	stack := []image.Point{start}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Has(p) {
			continue
		}
		visited.Put(p)
		if !m.Passable(p.X, p.Y) {
			continue
		}

		region = append(region, p)
		for _, d := range cardinal {
			n := p.Add(d)
			if n.X >= 0 && n.X < m.width && n.Y >= 0 && n.Y < m.height {
				stack = append(stack, n)
			}
		}
	}
	return region
}

// ClosestPair returns the pair of cells, one from each region, with the
// smallest Euclidean distance. Ties keep the first pair found, iterating a
// in the outer loop.
func ClosestPair(a, b Region) (image.Point, image.Point, float64) {
	var pa, pb image.Point
	best := math.MaxInt
	for _, p := range a {
		for _, q := range b {
			dx, dy := q.X-p.X, q.Y-p.Y
			if d := dx*dx + dy*dy; d < best {
				best = d
				pa, pb = p, q
			}
		}
	}
	if best == math.MaxInt {
		return pa, pb, math.Inf(1)
	}
	return pa, pb, math.Sqrt(float64(best))
}

// Line returns the Bresenham line from a to b, both ends included.
func Line(a, b image.Point) []image.Point {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X >= b.X {
		sx = -1
	}
	if a.Y >= b.Y {
		sy = -1
	}
	err := dx + dy

	var points []image.Point
	x, y := a.X, a.Y
	for {
		points = append(points, image.Point{X: x, Y: y})
		if x == b.X && y == b.Y {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
	return points
}

// carve makes every in-bounds cell within halfWidth of a line point
// passable, ignoring the circular mask.
func (m *Map) carve(line []image.Point, halfWidth int) {
	for _, p := range line {
		for oy := -halfWidth; oy <= halfWidth; oy++ {
			for ox := -halfWidth; ox <= halfWidth; ox++ {
				x, y := p.X+ox, p.Y+oy
				if x >= 0 && x < m.width && y >= 0 && y < m.height {
					m.cells[y*m.width+x] = true
				}
			}
		}
	}
}

// connect joins every region into one. Each round links the most recently
// connected region to the unconnected region holding the closest cell.
func (m *Map) connect(halfWidth int) error {
	if halfWidth == 0 {
		halfWidth = 1
	}

	regions := m.Regions()
	if len(regions) == 0 {
		return ErrEmptyRegionSet
	}

	connected := []Region{regions[0]}
	pending := regions[1:]

	for len(pending) > 0 {
		last := connected[len(connected)-1]

		bestIdx := -1
		bestDist := math.Inf(1)
		var from, to image.Point
		for i, r := range pending {
			a, b, d := ClosestPair(last, r)
			if d < bestDist {
				bestIdx, bestDist = i, d
				from, to = a, b
			}
		}

		m.carve(Line(from, to), halfWidth)
		m.corridors++

		connected = append(connected, pending[bestIdx])
		pending = append(pending[:bestIdx:bestIdx], pending[bestIdx+1:]...)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

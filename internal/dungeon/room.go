package dungeon

import (
	"image"
	"math/rand"

	"github.com/lawnchairsociety/thornwood/internal/logger"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
	"github.com/lawnchairsociety/thornwood/internal/wfc"
)

// Prop kinds placed on generatable tiles.
var propKinds = []string{"rock1", "rock2"}

const (
	propChance  = 0.1
	enemyChance = 0.5
	maxEnemies  = 4
)

// Prop is a collidable decoration sitting on a tile.
type Prop struct {
	X, Y int
	Kind string
}

// Room is a materialized room. It is never modified after RoomAt returns it.
type Room struct {
	Position      image.Point
	Seed          int64
	Width, Height int
	Tiles         []tileset.TileID // Row-major
	Props         []Prop
	Goal          *image.Point // Goal marker, goal room only
	Enemies       []image.Point
	IsSpawn       bool
	IsGoal        bool
	Stats         wfc.Stats
	Cached        bool // Tiles came from the grid store

	bundle *tileset.Bundle
	props  map[image.Point]int // Prop index by position
}

func newRoom(b *tileset.Bundle, p image.Point, seed int64, width, height int, tiles []tileset.TileID) *Room {
	return &Room{
		Position: p,
		Seed:     seed,
		Width:    width,
		Height:   height,
		Tiles:    tiles,
		bundle:   b,
		props:    make(map[image.Point]int),
	}
}

// At returns the tile at (x, y), or tileset.NoTile outside the room.
func (r *Room) At(x, y int) tileset.TileID {
	if !r.inBounds(x, y) {
		return tileset.NoTile
	}
	return r.Tiles[y*r.Width+x]
}

// Bundle returns the tileset the room was generated from.
func (r *Room) Bundle() *tileset.Bundle {
	return r.bundle
}

// TileName returns the name of the tile at (x, y).
func (r *Room) TileName(x, y int) string {
	return r.bundle.Name(r.At(x, y))
}

// Names returns the room as rows of tile names.
func (r *Room) Names() [][]string {
	rows := make([][]string, r.Height)
	for y := range rows {
		rows[y] = make([]string, r.Width)
		for x := range rows[y] {
			rows[y][x] = r.TileName(x, y)
		}
	}
	return rows
}

// PropAt returns the prop at (x, y), if any.
func (r *Room) PropAt(x, y int) (Prop, bool) {
	i, ok := r.props[image.Point{X: x, Y: y}]
	if !ok {
		return Prop{}, false
	}
	return r.Props[i], true
}

// Blocked reports whether (x, y) cannot be walked on: outside the room, a
// collidable tile, or under a prop.
func (r *Room) Blocked(x, y int) bool {
	if !r.inBounds(x, y) {
		return true
	}
	if r.bundle.Tile(r.At(x, y)).Collidable {
		return true
	}
	_, prop := r.props[image.Point{X: x, Y: y}]
	return prop
}

// Collision returns the blocked mask as Height rows of Width cells.
func (r *Room) Collision() [][]bool {
	rows := make([][]bool, r.Height)
	for y := range rows {
		rows[y] = make([]bool, r.Width)
		for x := range rows[y] {
			rows[y][x] = r.Blocked(x, y)
		}
	}
	return rows
}

// SpawnPosition returns the first non-collidable tile found scanning squares
// of growing radius around the centre, or the centre when there is none.
func (r *Room) SpawnPosition() image.Point {
	cx, cy := r.Width/2, r.Height/2
	maxRadius := max(r.Width, r.Height) / 2

	for radius := 0; radius < maxRadius; radius++ {
		for y := cy - radius; y <= cy+radius; y++ {
			for x := cx - radius; x <= cx+radius; x++ {
				if r.inBounds(x, y) && !r.bundle.Tile(r.At(x, y)).Collidable {
					return image.Point{X: x, Y: y}
				}
			}
		}
	}
	return image.Point{X: cx, Y: cy}
}

// EntryPosition returns where a walker standing at pos lands after leaving
// the previous room in direction delta: the opposite edge, same row or
// column, moved to the nearest open tile.
func (r *Room) EntryPosition(pos, delta image.Point) image.Point {
	x, y := pos.X, pos.Y
	switch {
	case delta.X < 0:
		x = r.Width - 1
	case delta.X > 0:
		x = 0
	case delta.Y < 0:
		y = r.Height - 1
	case delta.Y > 0:
		y = 0
	}
	x = min(max(x, 0), r.Width-1)
	y = min(max(y, 0), r.Height-1)
	return r.NearestOpen(image.Point{X: x, Y: y})
}

// NearestOpen returns the first unblocked tile found scanning squares of
// growing radius around p, or p when the room has none.
func (r *Room) NearestOpen(p image.Point) image.Point {
	maxRadius := max(r.Width, r.Height)
	for radius := 0; radius < maxRadius; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if !r.Blocked(p.X+dx, p.Y+dy) {
					return image.Point{X: p.X + dx, Y: p.Y + dy}
				}
			}
		}
	}
	return p
}

func (r *Room) inBounds(x, y int) bool {
	return x >= 0 && x < r.Width && y >= 0 && y < r.Height
}

// derivedRNG seeds a generator from the room seed the way every population
// pass does: (seed*mul + add) mod 2^32.
func derivedRNG(seed int64, mul, add uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(uint32(uint64(seed)*mul + add))))
}

// populate places props, the goal marker and enemy spawns.
func (r *Room) populate(goalTiles []tileset.TileID) {
	r.placeProps()
	if !r.IsSpawn {
		r.placeEnemies()
	}
	if r.IsGoal {
		r.placeGoal(goalTiles)
	}
}

func (r *Room) placeProps() {
	rng := derivedRNG(r.Seed, 31, 1)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if !r.bundle.Tile(r.At(x, y)).Generatable {
				continue
			}
			if rng.Float64() < propChance {
				kind := propKinds[rng.Intn(len(propKinds))]
				r.props[image.Point{X: x, Y: y}] = len(r.Props)
				r.Props = append(r.Props, Prop{X: x, Y: y, Kind: kind})
			}
		}
	}
}

func (r *Room) placeGoal(goalTiles []tileset.TileID) {
	rng := derivedRNG(r.Seed, 37, 2)

	var candidates []image.Point
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if !containsID(goalTiles, r.At(x, y)) {
				continue
			}
			if _, prop := r.props[image.Point{X: x, Y: y}]; prop {
				continue
			}
			candidates = append(candidates, image.Point{X: x, Y: y})
		}
	}

	if len(candidates) == 0 {
		logger.Warning("No suitable tile for goal marker", "x", r.Position.X, "y", r.Position.Y)
		return
	}
	p := candidates[rng.Intn(len(candidates))]
	r.Goal = &p
}

func (r *Room) placeEnemies() {
	rng := derivedRNG(r.Seed, 41, 3)
	if rng.Float64() >= enemyChance {
		return
	}
	count := rng.Intn(maxEnemies) + 1

	var candidates []image.Point
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if !r.Blocked(x, y) {
				candidates = append(candidates, image.Point{X: x, Y: y})
			}
		}
	}

	for i := 0; i < count && len(candidates) > 0; i++ {
		j := rng.Intn(len(candidates))
		r.Enemies = append(r.Enemies, candidates[j])
		candidates = append(candidates[:j], candidates[j+1:]...)
	}
}

func containsID(ids []tileset.TileID, id tileset.TileID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

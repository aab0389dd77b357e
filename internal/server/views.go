package server

import (
	"image"

	"github.com/lawnchairsociety/thornwood/internal/dungeon"
)

// point is a coordinate encoded as [x, y].
type point [2]int

func toPoint(p image.Point) point {
	return point{p.X, p.Y}
}

func toPoints(ps []image.Point) []point {
	out := make([]point, len(ps))
	for i, p := range ps {
		out[i] = toPoint(p)
	}
	return out
}

type mapView struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Seed   int64   `json:"seed"`
	Spawn  point   `json:"spawn"`
	Goal   point   `json:"goal"`
	Rooms  []point `json:"rooms"`
}

func newMapView(g *dungeon.Graph) *mapView {
	m := g.Map()
	return &mapView{
		Width:  m.Width(),
		Height: m.Height(),
		Seed:   g.Seed(),
		Spawn:  toPoint(g.Spawn()),
		Goal:   toPoint(g.Goal()),
		Rooms:  toPoints(g.Rooms()),
	}
}

type propView struct {
	Position point  `json:"position"`
	Kind     string `json:"kind"`
}

type statsView struct {
	Decisions  int `json:"decisions"`
	Conflicts  int `json:"conflicts"`
	Backtracks int `json:"backtracks"`
}

type roomView struct {
	Position      point      `json:"position"`
	Seed          int64      `json:"seed"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Tiles         [][]string `json:"tiles"`
	Props         []propView `json:"props"`
	Goal          *point     `json:"goal,omitempty"`
	Enemies       []point    `json:"enemies"`
	SpawnPosition point      `json:"spawn_position"`
	IsSpawn       bool       `json:"is_spawn"`
	IsGoal        bool       `json:"is_goal"`
	Cached        bool       `json:"cached"`
	Stats         statsView  `json:"stats"`
}

func newRoomView(r *dungeon.Room) *roomView {
	v := &roomView{
		Position:      toPoint(r.Position),
		Seed:          r.Seed,
		Width:         r.Width,
		Height:        r.Height,
		Tiles:         r.Names(),
		Props:         make([]propView, len(r.Props)),
		Enemies:       toPoints(r.Enemies),
		SpawnPosition: toPoint(r.SpawnPosition()),
		IsSpawn:       r.IsSpawn,
		IsGoal:        r.IsGoal,
		Cached:        r.Cached,
		Stats: statsView{
			Decisions:  r.Stats.Decisions,
			Conflicts:  r.Stats.Conflicts,
			Backtracks: r.Stats.Backtracks,
		},
	}
	for i, p := range r.Props {
		v.Props[i] = propView{Position: point{p.X, p.Y}, Kind: p.Kind}
	}
	if r.Goal != nil {
		g := toPoint(*r.Goal)
		v.Goal = &g
	}
	return v
}

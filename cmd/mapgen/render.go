package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/thornwood/internal/dungeon"
)

// Overlay glyphs drawn over room tiles.
const (
	glyphUnknown = '?'
	glyphProp    = 'o'
	glyphEnemy   = 'e'
	glyphGoal    = 'G'
	glyphSpawn   = '@'
)

// parseRoom resolves the -room flag: "spawn", "goal" or "x,y".
func parseRoom(arg string, g *dungeon.Graph) (image.Point, error) {
	switch arg {
	case "spawn":
		return g.Spawn(), nil
	case "goal":
		return g.Goal(), nil
	}

	xs, ys, ok := strings.Cut(arg, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid room %q: want x,y, spawn or goal", arg)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid room x %q: %w", xs, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid room y %q: %w", ys, err)
	}
	return image.Point{X: x, Y: y}, nil
}

// mapRows renders the macro map with S and G over the spawn and goal rooms.
func mapRows(g *dungeon.Graph) []string {
	m := g.Map()
	spawn, goal := g.Spawn(), g.Goal()

	rows := make([]string, m.Height())
	line := make([]byte, m.Width())
	for y := range rows {
		for x := range line {
			switch p := (image.Point{X: x, Y: y}); {
			case p == spawn:
				line[x] = 'S'
			case p == goal:
				line[x] = 'G'
			case m.Passable(x, y):
				line[x] = '.'
			default:
				line[x] = '#'
			}
		}
		rows[y] = string(line)
	}
	return rows
}

// roomRows renders a room one glyph per tile with props, enemies, the goal
// marker and the spawn position drawn on top.
func roomRows(r *dungeon.Room) []string {
	grid := make([][]rune, r.Height)
	for y := range grid {
		grid[y] = make([]rune, r.Width)
		for x := range grid[y] {
			grid[y][x] = tileGlyph(r, x, y)
		}
	}

	for _, p := range r.Props {
		grid[p.Y][p.X] = glyphProp
	}
	for _, e := range r.Enemies {
		grid[e.Y][e.X] = glyphEnemy
	}
	if r.Goal != nil {
		grid[r.Goal.Y][r.Goal.X] = glyphGoal
	}
	if r.IsSpawn {
		s := r.SpawnPosition()
		grid[s.Y][s.X] = glyphSpawn
	}

	rows := make([]string, r.Height)
	for y := range grid {
		rows[y] = string(grid[y])
	}
	return rows
}

func tileGlyph(r *dungeon.Room, x, y int) rune {
	glyph := r.Bundle().Tile(r.At(x, y)).Glyph
	if glyph == "" {
		return glyphUnknown
	}
	return []rune(glyph)[0]
}

// renderText writes the map and, when room is set, the room below it.
func renderText(sb *strings.Builder, g *dungeon.Graph, room *dungeon.Room, legend bool) {
	fmt.Fprintf(sb, "Thornwood Map (Seed: %d, Rooms: %d)\n", g.Seed(), len(g.Rooms()))
	fmt.Fprintf(sb, "Spawn: %d,%d  Goal: %d,%d\n", g.Spawn().X, g.Spawn().Y, g.Goal().X, g.Goal().Y)
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, row := range mapRows(g) {
		sb.WriteString(row + "\n")
	}

	if room != nil {
		sb.WriteString("\n")
		fmt.Fprintf(sb, "Room %d,%d (Seed: %d)", room.Position.X, room.Position.Y, room.Seed)
		if room.IsSpawn {
			sb.WriteString(" [spawn]")
		}
		if room.IsGoal {
			sb.WriteString(" [goal]")
		}
		sb.WriteString("\n")
		fmt.Fprintf(sb, "Decisions: %d  Conflicts: %d  Backtracks: %d  Cached: %v\n",
			room.Stats.Decisions, room.Stats.Conflicts, room.Stats.Backtracks, room.Cached)
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for _, row := range roomRows(room) {
			sb.WriteString(row + "\n")
		}
	}

	if legend {
		sb.WriteString(getLegend(g, room))
	}
}

func getLegend(g *dungeon.Graph, room *dungeon.Room) string {
	var sb strings.Builder
	sb.WriteString("\nLegend:\n")
	sb.WriteString("  [S] Spawn room\n  [G] Goal room\n  [.] Room\n  [#] Blocked\n")
	if room == nil {
		return sb.String()
	}

	sb.WriteString("\n  Room:\n")
	for _, t := range g.Bundle().Tiles() {
		glyph := t.Glyph
		if glyph == "" {
			glyph = string(glyphUnknown)
		}
		fmt.Fprintf(&sb, "  [%s] %s\n", glyph, t.Name)
	}
	fmt.Fprintf(&sb, "  [%c] Prop\n  [%c] Enemy spawn\n  [%c] Goal marker\n  [%c] Spawn position\n",
		glyphProp, glyphEnemy, glyphGoal, glyphSpawn)
	return sb.String()
}

type mapDump struct {
	Seed   int64     `yaml:"seed"`
	Width  int       `yaml:"width"`
	Height int       `yaml:"height"`
	Spawn  [2]int    `yaml:"spawn,flow"`
	Goal   [2]int    `yaml:"goal,flow"`
	Rooms  int       `yaml:"rooms"`
	Map    []string  `yaml:"map"`
	Room   *roomDump `yaml:"room,omitempty"`
}

type propDump struct {
	Position [2]int `yaml:"position,flow"`
	Kind     string `yaml:"kind"`
}

type roomDump struct {
	Position      [2]int     `yaml:"position,flow"`
	Seed          int64      `yaml:"seed"`
	Width         int        `yaml:"width"`
	Height        int        `yaml:"height"`
	IsSpawn       bool       `yaml:"is_spawn"`
	IsGoal        bool       `yaml:"is_goal"`
	SpawnPosition [2]int     `yaml:"spawn_position,flow"`
	Goal          *[2]int    `yaml:"goal,omitempty,flow"`
	Enemies       [][2]int   `yaml:"enemies,flow"`
	Props         []propDump `yaml:"props"`
	Tiles         []string   `yaml:"tiles"`
	Names         [][]string `yaml:"names,flow"`
}

func xy(p image.Point) [2]int {
	return [2]int{p.X, p.Y}
}

// renderYAML dumps the map and optional room as YAML.
func renderYAML(g *dungeon.Graph, room *dungeon.Room) ([]byte, error) {
	m := g.Map()
	dump := mapDump{
		Seed:   g.Seed(),
		Width:  m.Width(),
		Height: m.Height(),
		Spawn:  xy(g.Spawn()),
		Goal:   xy(g.Goal()),
		Rooms:  len(g.Rooms()),
		Map:    mapRows(g),
	}

	if room != nil {
		rd := &roomDump{
			Position:      xy(room.Position),
			Seed:          room.Seed,
			Width:         room.Width,
			Height:        room.Height,
			IsSpawn:       room.IsSpawn,
			IsGoal:        room.IsGoal,
			SpawnPosition: xy(room.SpawnPosition()),
			Enemies:       make([][2]int, len(room.Enemies)),
			Props:         make([]propDump, len(room.Props)),
			Tiles:         roomRows(room),
			Names:         room.Names(),
		}
		if room.Goal != nil {
			goal := xy(*room.Goal)
			rd.Goal = &goal
		}
		for i, e := range room.Enemies {
			rd.Enemies[i] = xy(e)
		}
		for i, p := range room.Props {
			rd.Props[i] = propDump{Position: [2]int{p.X, p.Y}, Kind: p.Kind}
		}
		dump.Room = rd
	}

	out, err := yaml.Marshal(&dump)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return out, nil
}

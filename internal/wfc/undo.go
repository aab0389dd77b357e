package wfc

import "github.com/lawnchairsociety/thornwood/internal/tileset"

// action is the pre-mutation state of one cell.
type action struct {
	index     int
	possible  []tileset.TileID
	collapsed bool
	tile      tileset.TileID
	entropy   float64
}

// batch holds every cell mutation caused by one collapse decision, in the
// order the mutations happened.
type batch []action

// record appends the current state of cell i to b.
func (g *Grid) record(b *batch, i int) {
	c := &g.Cells[i]
	*b = append(*b, action{
		index:     i,
		possible:  c.Possible,
		collapsed: c.Collapsed,
		tile:      c.Tile,
		entropy:   c.entropy,
	})
}

// undo restores every cell touched by b, newest first.
func (g *Grid) undo(b batch) {
	for i := len(b) - 1; i >= 0; i-- {
		a := b[i]
		c := &g.Cells[a.index]
		c.Possible = a.possible
		c.Collapsed = a.collapsed
		c.Tile = a.tile
		c.entropy = a.entropy
	}
}

package tileset

import (
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"strconv"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// File is the on-disk tileset definition.
type File struct {
	Directions  map[string]DirectionDef                  `yaml:"directions"`
	Tiles       map[string]TileDef                       `yaml:"tiles"`
	Constraints map[string]map[string]map[string]float64 `yaml:"constraints"`
}

// DirectionDef is a direction entry in the tileset file.
type DirectionDef struct {
	DX      int    `yaml:"dx"`
	DY      int    `yaml:"dy"`
	Reverse string `yaml:"reverse"`
}

// TileDef is a tile entry in the tileset file.
type TileDef struct {
	Weight      float64 `yaml:"weight"`
	Generatable bool    `yaml:"generatable"`
	Collidable  bool    `yaml:"collidable"`
	Glyph       string  `yaml:"glyph"`
}

// CardinalDirections returns the four-direction set used when a tileset
// file declares none.
func CardinalDirections() map[string]DirectionDef {
	return map[string]DirectionDef{
		"north": {DX: 0, DY: -1, Reverse: "south"},
		"east":  {DX: 1, DY: 0, Reverse: "west"},
		"south": {DX: 0, DY: 1, Reverse: "north"},
		"west":  {DX: -1, DY: 0, Reverse: "east"},
	}
}

// Load reads and validates a tileset YAML file.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tileset: %w", err)
	}
	return Parse(data)
}

// Parse builds a bundle from tileset YAML.
func Parse(data []byte) (*Bundle, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tileset: %w", err)
	}
	return Build(&f)
}

// Build validates a tileset definition and interns it into a Bundle.
func Build(f *File) (*Bundle, error) {
	if len(f.Tiles) == 0 {
		return nil, ErrEmptyTileUniverse
	}

	dirDefs := f.Directions
	if len(dirDefs) == 0 {
		dirDefs = CardinalDirections()
	}

	b := &Bundle{
		index:    make(map[string]TileID, len(f.Tiles)),
		dirIndex: make(map[string]Direction, len(dirDefs)),
	}

	// Directions
	dirNames := sortedKeys(dirDefs)
	for i, name := range dirNames {
		b.dirIndex[name] = Direction(i)
	}
	for _, name := range dirNames {
		def := dirDefs[name]
		rev, ok := b.dirIndex[def.Reverse]
		if !ok {
			return nil, fmt.Errorf("%w: %q has unknown reverse %q", ErrInvalidDirections, name, def.Reverse)
		}
		if def.DX == 0 && def.DY == 0 {
			return nil, fmt.Errorf("%w: %q has zero offset", ErrInvalidDirections, name)
		}
		b.directions = append(b.directions, DirectionSpec{
			Name:    name,
			DX:      def.DX,
			DY:      def.DY,
			Reverse: rev,
		})
	}
	for _, d := range b.directions {
		back := b.directions[d.Reverse]
		if b.directions[back.Reverse].Name != d.Name {
			return nil, fmt.Errorf("%w: reverse of %q is %q but reverse of %q is %q",
				ErrInvalidDirections, d.Name, back.Name, back.Name, b.directions[back.Reverse].Name)
		}
		if back.DX != -d.DX || back.DY != -d.DY {
			return nil, fmt.Errorf("%w: %q and its reverse %q are not opposite offsets",
				ErrInvalidDirections, d.Name, back.Name)
		}
	}

	// Tiles
	for i, name := range sortedKeys(f.Tiles) {
		def := f.Tiles[name]
		if def.Weight <= 0 || math.IsNaN(def.Weight) || math.IsInf(def.Weight, 0) {
			return nil, fmt.Errorf("%w: tile %q has weight %v", ErrInvalidWeight, name, def.Weight)
		}
		b.index[name] = TileID(i)
		b.tiles = append(b.tiles, TileSpec{
			ID:          TileID(i),
			Name:        name,
			Weight:      def.Weight,
			Generatable: def.Generatable,
			Collidable:  def.Collidable,
			Glyph:       def.Glyph,
		})
	}

	// Adjacency preferences
	n := len(b.tiles)
	b.adjacency = make([][][]float64, n)
	for t := range b.adjacency {
		b.adjacency[t] = make([][]float64, len(b.directions))
		for d := range b.adjacency[t] {
			b.adjacency[t][d] = make([]float64, n)
		}
	}
	for _, tileName := range sortedKeys(f.Constraints) {
		tile, err := b.ID(tileName)
		if err != nil {
			return nil, fmt.Errorf("constraints: %w", err)
		}
		byDir := f.Constraints[tileName]
		for _, dirName := range sortedKeys(byDir) {
			dir, ok := b.dirIndex[dirName]
			if !ok {
				return nil, fmt.Errorf("%w: constraint for %q uses unknown direction %q",
					ErrInvalidDirections, tileName, dirName)
			}
			prefs := byDir[dirName]
			for _, neighborName := range sortedKeys(prefs) {
				neighbor, err := b.ID(neighborName)
				if err != nil {
					return nil, fmt.Errorf("constraints for %q %s: %w", tileName, dirName, err)
				}
				pref := prefs[neighborName]
				if pref < 0 || math.IsNaN(pref) {
					return nil, fmt.Errorf("%w: preference %s -%s-> %s is %v",
						ErrInvalidWeight, tileName, dirName, neighborName, pref)
				}
				b.adjacency[tile][dir][neighbor] = pref
			}
		}
	}

	if err := b.checkSymmetric(); err != nil {
		return nil, err
	}

	b.fingerprint = b.computeFingerprint()
	return b, nil
}

// checkSymmetric requires that a permits b in direction d exactly when b
// permits a in the reverse of d.
func (b *Bundle) checkSymmetric() error {
	for a := range b.adjacency {
		for d, dir := range b.directions {
			for nb := range b.adjacency[a][d] {
				fwd := b.adjacency[a][d][nb] > 0
				back := b.adjacency[nb][dir.Reverse][a] > 0
				if fwd != back {
					rev := b.directions[dir.Reverse].Name
					return fmt.Errorf("%w: %s -%s-> %s is %v but %s -%s-> %s is %v",
						ErrAsymmetricAdjacency,
						b.tiles[a].Name, dir.Name, b.tiles[nb].Name, b.adjacency[a][d][nb],
						b.tiles[nb].Name, rev, b.tiles[a].Name, b.adjacency[nb][dir.Reverse][a])
				}
			}
		}
	}
	return nil
}

// computeFingerprint hashes a canonical text encoding of the bundle.
func (b *Bundle) computeFingerprint() string {
	h, _ := blake2b.New256(nil)
	for _, d := range b.directions {
		fmt.Fprintf(h, "d %s %d %d %d\n", d.Name, d.DX, d.DY, d.Reverse)
	}
	for _, t := range b.tiles {
		fmt.Fprintf(h, "t %s %s %t %t\n", t.Name,
			strconv.FormatFloat(t.Weight, 'g', -1, 64), t.Generatable, t.Collidable)
	}
	for t := range b.adjacency {
		for d := range b.adjacency[t] {
			for nb, pref := range b.adjacency[t][d] {
				if pref == 0 {
					continue
				}
				fmt.Fprintf(h, "a %d %d %d %s\n", t, d, nb, strconv.FormatFloat(pref, 'g', -1, 64))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

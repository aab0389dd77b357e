// Command mapgen prints a dungeon's macro map and, optionally, one of its
// rooms without starting the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/thornwood/internal/config"
	"github.com/lawnchairsociety/thornwood/internal/database"
	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/logger"
	"github.com/lawnchairsociety/thornwood/internal/noise"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

func main() {
	configFile := flag.String("config", "data/dungeon.yaml", "Path to dungeon config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seed := flag.Int64("seed", config.DefaultSeed, "Base seed (overrides the config file when set)")
	roomArg := flag.String("room", "", "Room to render: x,y, spawn or goal (empty for the map only)")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	format := flag.String("format", "text", "Output format: text or yaml")
	showLegend := flag.Bool("legend", true, "Show legend (text format)")
	useStore := flag.Bool("store", false, "Read and write solved rooms through the configured storage")
	flag.Parse()

	if *format != "text" && *format != "yaml" {
		fatalf("Unknown format %q: want text or yaml", *format)
	}

	// Logs go to stderr so stdout carries only the dump
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logConfig.ConsoleOutput = "stderr"
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed = *seed
		}
	})

	if err := run(cfg, *roomArg, *format, *outputFile, *showLegend, *useStore); err != nil {
		fatalf("%v", err)
	}
}

// run builds the dungeon and writes the dump.
func run(cfg *config.Config, roomArg, format, outputFile string, legend, useStore bool) error {
	bundle, err := tileset.Load(cfg.Tileset)
	if err != nil {
		return fmt.Errorf("error loading tileset: %w", err)
	}

	m, err := noise.Generate(cfg.NoiseParams())
	if err != nil {
		return fmt.Errorf("error generating map: %w", err)
	}

	opts := cfg.DungeonOptions()
	if useStore && cfg.Storage.Enabled() {
		db, err := database.OpenWithConfig(cfg.Storage)
		if err != nil {
			return fmt.Errorf("error opening storage: %w", err)
		}
		defer db.Close()
		opts.Store = db
	}

	g, err := dungeon.NewGraph(bundle, m, opts)
	if err != nil {
		return fmt.Errorf("error building room graph: %w", err)
	}

	var room *dungeon.Room
	if roomArg != "" {
		p, err := parseRoom(roomArg, g)
		if err != nil {
			return err
		}
		room, err = g.RoomAt(p)
		if err != nil {
			return fmt.Errorf("error generating room %d,%d: %w", p.X, p.Y, err)
		}
	}

	var out []byte
	if format == "yaml" {
		out, err = renderYAML(g, room)
		if err != nil {
			return err
		}
	} else {
		var sb strings.Builder
		renderText(&sb, g, room, legend)
		out = []byte(sb.String())
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return fmt.Errorf("error writing output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Map written to %s\n", outputFile)
		return nil
	}
	_, err = os.Stdout.Write(out)
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

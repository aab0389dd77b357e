package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/thornwood/internal/config"
	"github.com/lawnchairsociety/thornwood/internal/database"
	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/logger"
	"github.com/lawnchairsociety/thornwood/internal/noise"
	"github.com/lawnchairsociety/thornwood/internal/server"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

func main() {
	configFile := flag.String("config", "data/dungeon.yaml", "Path to dungeon config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seed := flag.Int64("seed", config.DefaultSeed, "Base seed (overrides the config file when set)")
	addr := flag.String("addr", "", "Listen address (overrides the config file when set)")
	flag.Parse()

	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load logging config, using defaults: %v\n", err)
	}
	logger.Initialize(logConfig)

	logger.Info("Starting Thornwood dungeon server")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "addr":
			cfg.Server.Address = *addr
		}
	})
	logger.Info("Dungeon seed selected", "seed", cfg.Seed)

	graph, db, err := buildDungeon(cfg)
	if err != nil {
		log.Fatalf("Failed to build dungeon: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	srv := server.NewServer(graph, cfg.Server)

	origins := cfg.Server.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(origins) == 1 && origins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", origins)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	logger.Info("Dungeon server running", "address", cfg.Server.Address)
	logger.Info("Press Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
	logger.Info("Server stopped", "rooms_materialized", graph.Materialized())
}

// buildDungeon loads the tileset, generates the macro map and opens the
// room grid store when storage is enabled. The returned database is nil
// when storage is off.
func buildDungeon(cfg *config.Config) (*dungeon.Graph, *database.Database, error) {
	bundle, err := tileset.Load(cfg.Tileset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tileset: %w", err)
	}
	logger.Info("Tileset loaded", "path", cfg.Tileset, "tiles", bundle.Len(), "fingerprint", bundle.Fingerprint())

	m, err := noise.Generate(cfg.NoiseParams())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate map: %w", err)
	}

	opts := cfg.DungeonOptions()

	var db *database.Database
	if cfg.Storage.Enabled() {
		db, err = database.OpenWithConfig(cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open room storage: %w", err)
		}
		opts.Store = db
		logger.Info("Room grid storage enabled", "driver", cfg.Storage.Driver)
	}

	graph, err := dungeon.NewGraph(bundle, m, opts)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return graph, db, nil
}

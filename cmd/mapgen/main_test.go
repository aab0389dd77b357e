package main

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/thornwood/internal/config"
	"github.com/lawnchairsociety/thornwood/internal/database"
	"github.com/lawnchairsociety/thornwood/internal/tileset"
)

func storeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Tileset = filepath.Join("..", "..", "data", "tileset.yaml")
	cfg.Map.Width = 30
	cfg.Map.Height = 30
	cfg.Room.Width = 10
	cfg.Room.Height = 8
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "rooms.db")
	return cfg
}

func TestRunWritesRoomThroughStore(t *testing.T) {
	cfg := storeConfig(t)
	out := filepath.Join(t.TempDir(), "spawn.yaml")

	if err := run(cfg, "spawn", "yaml", out, false, true); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	var dump mapDump
	if err := yaml.Unmarshal(data, &dump); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if dump.Room == nil || !dump.Room.IsSpawn {
		t.Fatalf("room dump = %+v, want the spawn room", dump.Room)
	}

	// run has closed its handle, so the file can be reopened and inspected
	bundle, err := tileset.Load(cfg.Tileset)
	if err != nil {
		t.Fatalf("tileset.Load() failed: %v", err)
	}
	db, err := database.Open(cfg.Storage.SQLitePath)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	defer db.Close()

	n, err := db.CountRoomGrids(bundle.Fingerprint(), cfg.Seed)
	if err != nil {
		t.Fatalf("CountRoomGrids() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("stored %d room grids, want 1", n)
	}
}

func TestRunReturnsErrors(t *testing.T) {
	tests := []struct {
		name   string
		room   string
		mutate func(cfg *config.Config)
	}{
		{name: "bad room argument", room: "nowhere"},
		{name: "room outside the map", room: "-5,-5"},
		{
			name: "missing tileset",
			mutate: func(cfg *config.Config) {
				cfg.Tileset = filepath.Join(t.TempDir(), "missing.yaml")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := storeConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			out := filepath.Join(t.TempDir(), "out.txt")
			if err := run(cfg, tt.room, "text", out, true, true); err == nil {
				t.Fatal("run() succeeded, want an error")
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("output file written despite the error")
			}
		})
	}
}

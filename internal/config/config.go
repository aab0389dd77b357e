// Package config loads the dungeon generator configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/thornwood/internal/database"
	"github.com/lawnchairsociety/thornwood/internal/dungeon"
	"github.com/lawnchairsociety/thornwood/internal/noise"
)

var ErrInvalidConfig = errors.New("invalid config")

// DefaultSeed is the base seed of the standard Thornwood dungeon.
const DefaultSeed = 91231

// Config holds every generator, storage and server setting.
type Config struct {
	Seed    int64           `yaml:"seed"`
	Tileset string          `yaml:"tileset"`
	Map     MapConfig       `yaml:"map"`
	Room    RoomConfig      `yaml:"room"`
	Storage database.Config `yaml:"storage"`
	Server  ServerConfig    `yaml:"server"`
}

// MapConfig controls the macro noise map.
type MapConfig struct {
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	Density           int    `yaml:"density"`
	WallThreshold     int    `yaml:"wall_threshold"`
	Iterations        int    `yaml:"iterations"`
	CorridorHalfWidth int    `yaml:"corridor_half_width"`
	Fill              string `yaml:"fill"`
}

// RoomConfig controls per-room tile generation.
type RoomConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// MaxSteps caps solver iterations per room. 0 means unlimited.
	MaxSteps int `yaml:"max_steps"`

	// GoalTiles lists the tiles the goal marker may be placed on.
	GoalTiles []string `yaml:"goal_tiles"`
}

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent sessions allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent sessions.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns the configuration of the standard Thornwood dungeon.
// Room storage is off unless a driver is configured.
func DefaultConfig() *Config {
	p := noise.DefaultParams(DefaultSeed)
	opts := dungeon.DefaultOptions(DefaultSeed)

	return &Config{
		Seed:    DefaultSeed,
		Tileset: "data/tileset.yaml",
		Map: MapConfig{
			Width:             p.Width,
			Height:            p.Height,
			Density:           p.Density,
			WallThreshold:     p.WallThreshold,
			Iterations:        p.Iterations,
			CorridorHalfWidth: p.CorridorHalfWidth,
			Fill:              string(p.Fill),
		},
		Room: RoomConfig{
			Width:     opts.RoomWidth,
			Height:    opts.RoomHeight,
			GoalTiles: opts.GoalTiles,
		},
		Storage: database.Config{
			Driver:     "none",
			SQLitePath: "data/rooms.db",
			Postgres:   database.DefaultPostgresConfig(),
		},
		Server: ServerConfig{
			Address: ":4443",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides settings from DUNGEON_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DUNGEON_SEED"); v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: DUNGEON_SEED %q: %v", ErrInvalidConfig, v, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("DUNGEON_TILESET"); v != "" {
		c.Tileset = v
	}
	if v := os.Getenv("DUNGEON_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DUNGEON_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	return nil
}

// Validate checks ranges the generator cannot work with.
func (c *Config) Validate() error {
	if c.Tileset == "" {
		return fmt.Errorf("%w: tileset path is empty", ErrInvalidConfig)
	}
	if err := c.NoiseParams().Validate(); err != nil {
		return fmt.Errorf("%w: map: %v", ErrInvalidConfig, err)
	}
	if c.Room.Width <= 0 || c.Room.Height <= 0 {
		return fmt.Errorf("%w: room size %dx%d", ErrInvalidConfig, c.Room.Width, c.Room.Height)
	}
	if c.Room.MaxSteps < 0 {
		return fmt.Errorf("%w: room max_steps %d", ErrInvalidConfig, c.Room.MaxSteps)
	}
	switch c.Storage.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite_path is empty", ErrInvalidConfig)
	}
	return nil
}

// NoiseParams returns the macro map parameters.
func (c *Config) NoiseParams() noise.Params {
	return noise.Params{
		Width:             c.Map.Width,
		Height:            c.Map.Height,
		Seed:              c.Seed,
		Density:           c.Map.Density,
		WallThreshold:     c.Map.WallThreshold,
		Iterations:        c.Map.Iterations,
		CorridorHalfWidth: c.Map.CorridorHalfWidth,
		Fill:              noise.Fill(c.Map.Fill),
	}
}

// DungeonOptions returns room graph options without a grid store.
func (c *Config) DungeonOptions() dungeon.Options {
	goalTiles := make([]string, len(c.Room.GoalTiles))
	copy(goalTiles, c.Room.GoalTiles)

	return dungeon.Options{
		Seed:       c.Seed,
		RoomWidth:  c.Room.Width,
		RoomHeight: c.Room.Height,
		MaxSteps:   c.Room.MaxSteps,
		GoalTiles:  goalTiles,
	}
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}

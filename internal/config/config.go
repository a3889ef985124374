package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"trashtalk/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Game      GameConfig      `mapstructure:"game"`
	Store     StoreConfig     `mapstructure:"store"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Content   ContentConfig   `mapstructure:"content"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port      string `mapstructure:"port"`
	Host      string `mapstructure:"host"`
	Env       string `mapstructure:"env"`        // "development" or "production"
	PublicURL string `mapstructure:"public_url"` // Base URL encoded in join QR codes
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers           int           `mapstructure:"min_players"`
	MaxPlayers           int           `mapstructure:"max_players"`
	HandSize             int           `mapstructure:"hand_size"`
	ExtraPerCombo        int           `mapstructure:"extra_per_combo"`
	RequireFullReveal    bool          `mapstructure:"require_full_reveal"`
	ReconnectGracePeriod time.Duration `mapstructure:"reconnect_grace_period"`
	RoomCodeLength       int           `mapstructure:"room_code_length"`
	RoomCodeWords        []string      `mapstructure:"room_code_words"`
}

// StoreConfig holds room table housekeeping
type StoreConfig struct {
	Expiration    time.Duration `mapstructure:"expiration"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SnapshotConfig selects where room snapshots go
type SnapshotConfig struct {
	Backend     string        `mapstructure:"backend"` // "none", "file", "redis" or "postgres"
	Interval    time.Duration `mapstructure:"interval"`
	Path        string        `mapstructure:"path"`
	RedisURL    string        `mapstructure:"redis_url"`
	RedisKey    string        `mapstructure:"redis_key"`
	PostgresURL string        `mapstructure:"postgres_url"`
}

// RateLimitConfig holds the per-connection throttle
type RateLimitConfig struct {
	Window          time.Duration `mapstructure:"window"`
	Max             int           `mapstructure:"max"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AuthConfig holds session token settings
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// ContentConfig points at card packs and the round schedule. Empty paths use the
// built-in content.
type ContentConfig struct {
	PacksFile  string `mapstructure:"packs_file"`
	RoundsFile string `mapstructure:"rounds_file"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

var defaults = map[string]interface{}{
	"server.port":       "8080",
	"server.host":       "0.0.0.0",
	"server.env":        "development",
	"server.public_url": "",

	"game.min_players":            3,
	"game.max_players":            10,
	"game.hand_size":              7,
	"game.extra_per_combo":        1,
	"game.require_full_reveal":    true,
	"game.reconnect_grace_period": 60 * time.Second,
	"game.room_code_length":       4,
	"game.room_code_words":        []string{},

	"store.expiration":     2 * time.Hour,
	"store.sweep_interval": 5 * time.Minute,

	"snapshot.backend":      "file",
	"snapshot.interval":     30 * time.Second,
	"snapshot.path":         "data/rooms.json",
	"snapshot.redis_url":    "redis://localhost:6379/0",
	"snapshot.redis_key":    "trashtalk:snapshot",
	"snapshot.postgres_url": "",

	"ratelimit.window":           time.Second,
	"ratelimit.max":              10,
	"ratelimit.cleanup_interval": time.Minute,

	"auth.token_secret": "",
	"auth.token_ttl":    24 * time.Hour,

	"content.packs_file":  "",
	"content.rounds_file": "",

	"logging.level":  "info",
	"logging.format": "text",
}

var envBindings = map[string]string{
	"server.port":       "PORT",
	"server.host":       "HOST",
	"server.env":        "ENV",
	"server.public_url": "PUBLIC_URL",

	"game.min_players":            "MIN_PLAYERS",
	"game.max_players":            "MAX_PLAYERS",
	"game.hand_size":              "HAND_SIZE",
	"game.extra_per_combo":        "EXTRA_CARDS_PER_COMBO",
	"game.require_full_reveal":    "REQUIRE_FULL_REVEAL",
	"game.reconnect_grace_period": "RECONNECT_GRACE_PERIOD",
	"game.room_code_length":       "ROOM_CODE_LENGTH",
	"game.room_code_words":        "ROOM_CODE_WORDS",

	"store.expiration":     "ROOM_EXPIRATION",
	"store.sweep_interval": "ROOM_SWEEP_INTERVAL",

	"snapshot.backend":      "SNAPSHOT_BACKEND",
	"snapshot.interval":     "SNAPSHOT_INTERVAL",
	"snapshot.path":         "SNAPSHOT_PATH",
	"snapshot.redis_url":    "REDIS_URL",
	"snapshot.redis_key":    "SNAPSHOT_REDIS_KEY",
	"snapshot.postgres_url": "DATABASE_URL",

	"ratelimit.window":           "RATE_LIMIT_WINDOW",
	"ratelimit.max":              "RATE_LIMIT_MAX",
	"ratelimit.cleanup_interval": "RATE_LIMIT_CLEANUP_INTERVAL",

	"auth.token_secret": "SESSION_SECRET",
	"auth.token_ttl":    "SESSION_TTL",

	"content.packs_file":  "PACKS_FILE",
	"content.rounds_file": "ROUNDS_FILE",

	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, an optional .env file and the environment, later sources winning.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.MinPlayers < 2:
		return fmt.Errorf("config: min_players must be at least 2, got %d", g.MinPlayers)
	case g.MaxPlayers < g.MinPlayers:
		return fmt.Errorf("config: max_players (%d) below min_players (%d)", g.MaxPlayers, g.MinPlayers)
	case g.HandSize < 1:
		return fmt.Errorf("config: hand_size must be positive, got %d", g.HandSize)
	case g.RoomCodeLength < 4 || g.RoomCodeLength > 8:
		return fmt.Errorf("config: room_code_length must be 4-8, got %d", g.RoomCodeLength)
	case g.ReconnectGracePeriod <= 0:
		return errors.New("config: reconnect_grace_period must be positive")
	case c.RateLimit.Max < 1 || c.RateLimit.Window <= 0 || c.RateLimit.CleanupInterval <= 0:
		return errors.New("config: rate limit needs a positive window, max and cleanup interval")
	case c.Store.Expiration <= 0 || c.Store.SweepInterval <= 0:
		return errors.New("config: store expiration and sweep interval must be positive")
	}

	switch c.Snapshot.Backend {
	case "none":
	case "file", "redis", "postgres":
		if c.Snapshot.Interval <= 0 {
			return errors.New("config: snapshot interval must be positive")
		}
	default:
		return fmt.Errorf("config: unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if c.Snapshot.Backend == "postgres" && c.Snapshot.PostgresURL == "" {
		return errors.New("config: postgres snapshots need DATABASE_URL")
	}
	return nil
}

// Rules returns the game tunables shared by every room
func (g GameConfig) Rules() domain.Rules {
	return domain.Rules{
		MinPlayers:        g.MinPlayers,
		MaxPlayers:        g.MaxPlayers,
		HandSize:          g.HandSize,
		ExtraPerCombo:     g.ExtraPerCombo,
		RequireFullReveal: g.RequireFullReveal,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

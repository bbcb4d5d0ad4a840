package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// Mode selects how the dispatcher runs render tasks.
type Mode string

const (
	ModeConcurrent Mode = "concurrent"
	ModeSequential Mode = "sequential"
)

const (
	DefaultWorkers       = 8
	DefaultFrameDelay    = 60
	DefaultRenderURL     = "http://localhost:6175/game.gif"
	DefaultComment       = "pgn2gif"
	DefaultRenderTimeout = Duration(30 * time.Second)
	DefaultCacheTTL      = Duration(24 * time.Hour)
)

var (
	ErrInputRequired  = errors.New("input path is required")
	ErrOutputRequired = errors.New("output directory is required")
	ErrOutputNotDir   = errors.New("output path is not a directory")
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	ErrInvalidDelay   = errors.New("frame delay must be positive")
	ErrInvalidMode    = errors.New("mode must be concurrent or sequential")
	ErrUnknownFormat  = errors.New("unsupported config file extension")
)

type Filter struct {
	Player string `yaml:"player" toml:"player"`
	All    bool   `yaml:"all" toml:"all"`
}

type Render struct {
	URL       string   `yaml:"url" toml:"url"`
	Comment   string   `yaml:"comment" toml:"comment"`
	Timeout   Duration `yaml:"timeout" toml:"timeout"`
	RateLimit float64  `yaml:"rate_limit" toml:"rate_limit"`
}

type Cache struct {
	RedisURL string   `yaml:"redis_url" toml:"redis_url"`
	TTL      Duration `yaml:"ttl" toml:"ttl"`
}

type Ledger struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

type Log struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// AppConfig is the single configuration value handed to every component.
// Build it with Load, adjust it from flags, then call Validate.
type AppConfig struct {
	Input      string `yaml:"input" toml:"input"`
	Output     string `yaml:"output" toml:"output"`
	Verbose    bool   `yaml:"verbose" toml:"verbose"`
	Mode       Mode   `yaml:"mode" toml:"mode"`
	Workers    int    `yaml:"workers" toml:"workers"`
	FrameDelay int    `yaml:"frame_delay" toml:"frame_delay"`

	Filter Filter `yaml:"filter" toml:"filter"`
	Render Render `yaml:"render" toml:"render"`
	Cache  Cache  `yaml:"cache" toml:"cache"`
	Ledger Ledger `yaml:"ledger" toml:"ledger"`
	Log    Log    `yaml:"log" toml:"log"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Mode:       ModeConcurrent,
		Workers:    DefaultWorkers,
		FrameDelay: DefaultFrameDelay,
		Render: Render{
			URL:     DefaultRenderURL,
			Comment: DefaultComment,
			Timeout: DefaultRenderTimeout,
		},
		Cache: Cache{TTL: DefaultCacheTTL},
		Log:   Log{Level: "info", Format: "legacy"},
	}
}

// Load layers an optional config file and then the environment over Default.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, c); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return nil
}

func (c *AppConfig) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("PGN2GIF_INPUT", &c.Input)
	str("PGN2GIF_OUTPUT", &c.Output)
	str("PGN2GIF_PLAYER", &c.Filter.Player)
	str("PGN2GIF_RENDER_URL", &c.Render.URL)
	str("PGN2GIF_COMMENT", &c.Render.Comment)
	str("PGN2GIF_REDIS_URL", &c.Cache.RedisURL)
	str("PGN2GIF_LEDGER_DSN", &c.Ledger.DSN)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	if v := strings.TrimSpace(getenv("PGN2GIF_MODE")); v != "" {
		c.Mode = Mode(strings.ToLower(v))
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_VERBOSE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PGN2GIF_VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PGN2GIF_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_DELAY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PGN2GIF_DELAY: %w", err)
		}
		c.FrameDelay = n
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PGN2GIF_RATE_LIMIT: %w", err)
		}
		c.Render.RateLimit = f
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_RENDER_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PGN2GIF_RENDER_TIMEOUT: %w", err)
		}
		c.Render.Timeout = Duration(d)
	}
	if v := strings.TrimSpace(getenv("PGN2GIF_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PGN2GIF_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = Duration(d)
	}
	return nil
}

// Validate checks everything that must hold before any work starts.
// The output directory must already exist.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return ErrInputRequired
	}
	if strings.TrimSpace(c.Output) == "" {
		return ErrOutputRequired
	}
	info, err := os.Stat(c.Output)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutputNotDir, c.Output)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrOutputNotDir, c.Output)
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.FrameDelay <= 0 {
		return ErrInvalidDelay
	}
	switch c.Mode {
	case ModeConcurrent, ModeSequential:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Render.Timeout <= 0 {
		c.Render.Timeout = DefaultRenderTimeout
	}
	if c.Render.RateLimit < 0 {
		c.Render.RateLimit = 0
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	return nil
}

// Target returns the participant filter value; empty means every record matches.
func (c *AppConfig) Target() string {
	if c.Filter.All {
		return ""
	}
	return c.Filter.Player
}

// LogLevel folds the verbose flag into the configured level.
func (c *AppConfig) LogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.Log.Level
}

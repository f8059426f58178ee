// Package config loads scrapekit's TOML configuration.
//
// Configuration lives at ~/.config/scrapekit/config.toml by default and
// covers the delay range, cache backend selection, and the browser
// profile of the challenge client. Every field has a sensible default,
// so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration document.
type Config struct {
	Delay  Delay  `toml:"delay"`
	Cache  Cache  `toml:"cache"`
	Client Client `toml:"client"`
}

// Delay bounds the random inter-request delay, in seconds.
type Delay struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// Cache selects and configures the response cache backend.
type Cache struct {
	Backend string   `toml:"backend"` // file | redis | mongo | none
	Dir     string   `toml:"dir"`     // file backend directory
	MaxAge  Duration `toml:"max_age"` // freshness window for GET responses
	Redis   Redis    `toml:"redis"`
	Mongo   Mongo    `toml:"mongo"`
}

// Redis configures the Redis cache backend.
type Redis struct {
	Addr string `toml:"addr"`
}

// Mongo configures the MongoDB cache backend.
type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Client configures the browser-impersonating challenge client.
type Client struct {
	Timeout  Duration `toml:"timeout"`
	Browser  string   `toml:"browser"`
	Platform string   `toml:"platform"`
}

// Duration wraps time.Duration so TOML values like "1h" parse directly.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file exists: a 2-5
// second delay range, a file cache in ./cache with a one hour freshness
// window, and Chrome-on-Windows impersonation with a 30 second timeout.
func Default() Config {
	return Config{
		Delay: Delay{Min: 2, Max: 5},
		Cache: Cache{
			Backend: "file",
			Dir:     "cache",
			MaxAge:  Duration{time.Hour},
			Redis:   Redis{Addr: "localhost:6379"},
			Mongo: Mongo{
				URI:        "mongodb://localhost:27017",
				Database:   "scrapekit",
				Collection: "responses",
			},
		},
		Client: Client{
			Timeout:  Duration{30 * time.Second},
			Browser:  "chrome",
			Platform: "windows",
		},
	}
}

// DefaultPath returns ~/.config/scrapekit/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "scrapekit", "config.toml"), nil
}

// Load reads the configuration at path, layered over [Default]. An
// empty path selects [DefaultPath]; a missing file at the default
// location yields the defaults, while a missing file at an explicit
// path is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the delay range and backend selection.
func (c Config) Validate() error {
	if c.Delay.Min < 0 || c.Delay.Max < 0 {
		return fmt.Errorf("delay range must be non-negative, got [%g, %g]", c.Delay.Min, c.Delay.Max)
	}
	if c.Delay.Min > c.Delay.Max {
		return fmt.Errorf("delay min %g exceeds max %g", c.Delay.Min, c.Delay.Max)
	}
	switch c.Cache.Backend {
	case "file", "redis", "mongo", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// DelayMin returns the lower delay bound as a duration.
func (c Config) DelayMin() time.Duration {
	return time.Duration(c.Delay.Min * float64(time.Second))
}

// DelayMax returns the upper delay bound as a duration.
func (c Config) DelayMax() time.Duration {
	return time.Duration(c.Delay.Max * float64(time.Second))
}

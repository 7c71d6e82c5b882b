// Package config loads tilestyle settings from a TOML or YAML file.
//
// Values are layered: built-in defaults, then the file, then environment
// variables. Command-line flags are applied last by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/tilestyle/pkg/errors"
)

const appName = "tilestyle"

// Environment variables read by Load.
const (
	EnvAccessToken = "TILESTYLE_ACCESS_TOKEN"
	EnvConfig      = "TILESTYLE_CONFIG"

	// EnvMapboxAccessToken is consulted when EnvAccessToken is unset.
	EnvMapboxAccessToken = "MAPBOX_ACCESS_TOKEN"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config holds all settings.
type Config struct {
	// Cache
	CacheBackend     string        `toml:"cache_backend" yaml:"cache_backend"`
	CacheDir         string        `toml:"cache_dir" yaml:"cache_dir"`
	MemoryCacheBytes int64         `toml:"memory_cache_bytes" yaml:"memory_cache_bytes"`
	RedisAddr        string        `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword    string        `toml:"redis_password" yaml:"redis_password"`
	RedisRetention   time.Duration `toml:"redis_retention" yaml:"redis_retention"`
	MongoURI         string        `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase    string        `toml:"mongo_database" yaml:"mongo_database"`

	// Network
	AccessToken   string        `toml:"access_token" yaml:"access_token"`
	HTTPTimeout   time.Duration `toml:"http_timeout" yaml:"http_timeout"`
	RetryAttempts int           `toml:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    time.Duration `toml:"retry_delay" yaml:"retry_delay"`
	NoRevalidate  bool          `toml:"no_revalidate" yaml:"no_revalidate"`

	// Style
	PixelRatio         float64       `toml:"pixel_ratio" yaml:"pixel_ratio"`
	TransitionDuration time.Duration `toml:"transition_duration" yaml:"transition_duration"`
	TransitionDelay    time.Duration `toml:"transition_delay" yaml:"transition_delay"`
	FadeDuration       time.Duration `toml:"fade_duration" yaml:"fade_duration"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CacheBackend:     BackendFile,
		MemoryCacheBytes: 64 << 20,
		RedisAddr:        "localhost:6379",
		MongoDatabase:    appName,
		HTTPTimeout:      30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       500 * time.Millisecond,
		PixelRatio:       1,
		FadeDuration:     300 * time.Millisecond,
	}
}

// Load reads the file at path on top of the defaults and applies the
// environment. An empty path selects $TILESTYLE_CONFIG, then the default
// location; a missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, &cfg); err != nil {
				return Config{}, err
			}
		case explicit || !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	if cfg.CacheDir == "" {
		dir, err := CacheHome()
		if err != nil && cfg.CacheBackend == BackendFile {
			return Config{}, fmt.Errorf("cache dir: %w", err)
		}
		cfg.CacheDir = dir
	}
	return cfg, cfg.Validate()
}

func decode(path string, data []byte, cfg *Config) error {
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	for _, name := range []string{EnvAccessToken, EnvMapboxAccessToken} {
		if tok := os.Getenv(name); tok != "" {
			c.AccessToken = tok
			return
		}
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.CacheBackend {
	case BackendFile, BackendMemory, BackendRedis, BackendMongo, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.CacheBackend)
	}
	if c.CacheBackend == BackendMongo && c.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "mongo cache backend needs mongo_uri")
	}
	if c.PixelRatio <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "pixel_ratio must be positive")
	}
	if c.RetryAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "retry_attempts must be at least 1")
	}
	if c.HTTPTimeout < 0 || c.RetryDelay < 0 || c.TransitionDuration < 0 || c.TransitionDelay < 0 || c.FadeDuration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "durations must not be negative")
	}
	return nil
}

// DefaultPath returns the config file location following XDG
// (~/.config/tilestyle/config.toml).
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheHome returns the cache directory following XDG (~/.cache/tilestyle).
func CacheHome() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

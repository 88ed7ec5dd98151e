package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Configuration errors.
var (
	ErrInvalidStoreMode    = errors.New("config: invalid store mode")
	ErrInvalidHashAlgo     = errors.New("config: invalid hash algorithm")
	ErrInvalidLogLevel     = errors.New("config: invalid log level")
	ErrInvalidIdleTimeout  = errors.New("config: idle timeout must not be negative")
	ErrMissingCacheDirName = errors.New("config: cache name is required")
)

// Defaults for recognized options.
const (
	DefaultName        = "default"
	DefaultHashAlgo    = "xxh64"
	DefaultStore       = "pack"
	DefaultIdleTimeout = 10 * time.Second
)

// Config holds the recognized cache engine options.
type Config struct {
	// CacheDirectory is the root directory for archives and per-file
	// entries. Defaults to a conventional per-user cache path.
	CacheDirectory string `mapstructure:"cacheDirectory"`

	// Name is the archive name and per-file subdirectory under
	// CacheDirectory.
	Name string `mapstructure:"name"`

	// HashAlgorithm shards per-file entries: xxh64 (default), sha256, md5.
	HashAlgorithm string `mapstructure:"hashAlgorithm"`

	// Version is the cache-format compatibility tag; stored entries with a
	// different version are treated as misses.
	Version string `mapstructure:"version"`

	// LogLevel is debug|verbose|info|warning; empty disables diagnostics.
	LogLevel string `mapstructure:"loglevel"`

	// Store selects the storage strategy: pack|idle|instant|background.
	Store string `mapstructure:"store"`

	// IdleTimeout is how long the host must stay idle before a drain.
	IdleTimeout time.Duration `mapstructure:"idleTimeout"`

	// IdleTimeoutForInitialStore applies to the first idle period of the
	// process only and is capped by IdleTimeout.
	IdleTimeoutForInitialStore time.Duration `mapstructure:"idleTimeoutForInitialStore"`
}

// Valid store modes.
var validStoreModes = map[string]bool{
	"pack":       true,
	"idle":       true,
	"instant":    true,
	"background": true,
}

// Valid hash algorithms for per-file sharding.
var validHashAlgorithms = map[string]bool{
	"xxh64":  true,
	"sha256": true,
	"md5":    true,
}

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug":   true,
	"verbose": true,
	"info":    true,
	"warning": true,
	"":        true, // Empty is valid (disabled)
}

// Default returns a Config populated with every default value.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults and caps the initial
// store timeout at the idle timeout.
func (c *Config) ApplyDefaults() {
	if c.CacheDirectory == "" {
		c.CacheDirectory = defaultCacheDirectory()
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = DefaultHashAlgo
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.IdleTimeoutForInitialStore > c.IdleTimeout {
		c.IdleTimeoutForInitialStore = c.IdleTimeout
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrMissingCacheDirName
	}
	if !validStoreModes[c.Store] {
		return fmt.Errorf("%w: %q", ErrInvalidStoreMode, c.Store)
	}
	if !validHashAlgorithms[c.HashAlgorithm] {
		return fmt.Errorf("%w: %q", ErrInvalidHashAlgo, c.HashAlgorithm)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if c.IdleTimeout < 0 || c.IdleTimeoutForInitialStore < 0 {
		return ErrInvalidIdleTimeout
	}
	return nil
}

// ArchivePath returns the pack-mode archive file path.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.CacheDirectory, c.Name+".pack")
}

// FileRoot returns the root directory for per-file storage modes.
func (c *Config) FileRoot() string {
	return filepath.Join(c.CacheDirectory, c.Name)
}

func defaultCacheDirectory() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "packcache")
}

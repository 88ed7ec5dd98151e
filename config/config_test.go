package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfig_ApplyDefaults tests default population and the initial-store cap.
func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Name != "default" {
		t.Errorf("Name = %q, want default", cfg.Name)
	}
	if cfg.HashAlgorithm != "xxh64" {
		t.Errorf("HashAlgorithm = %q, want xxh64", cfg.HashAlgorithm)
	}
	if cfg.Store != "pack" {
		t.Errorf("Store = %q, want pack", cfg.Store)
	}
	if cfg.IdleTimeout != 10*time.Second {
		t.Errorf("IdleTimeout = %v, want 10s", cfg.IdleTimeout)
	}
	if cfg.CacheDirectory == "" {
		t.Error("CacheDirectory empty after defaults")
	}
	if cfg.Version != "" {
		t.Errorf("Version = %q, want empty", cfg.Version)
	}
}

// TestConfig_InitialStoreCappedByIdleTimeout tests the documented cap.
func TestConfig_InitialStoreCappedByIdleTimeout(t *testing.T) {
	cfg := Config{
		IdleTimeout:                2 * time.Second,
		IdleTimeoutForInitialStore: 30 * time.Second,
	}
	cfg.ApplyDefaults()

	if cfg.IdleTimeoutForInitialStore != 2*time.Second {
		t.Errorf("IdleTimeoutForInitialStore = %v, want capped to 2s", cfg.IdleTimeoutForInitialStore)
	}
}

// TestConfig_Validate tests option validation rules.
func TestConfig_Validate(t *testing.T) {
	valid := Default()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults are valid", func(c *Config) {}, nil},
		{"bad store mode", func(c *Config) { c.Store = "eventually" }, ErrInvalidStoreMode},
		{"bad hash algorithm", func(c *Config) { c.HashAlgorithm = "crc32" }, ErrInvalidHashAlgo},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }, ErrInvalidIdleTimeout},
		{"missing name", func(c *Config) { c.Name = "" }, ErrMissingCacheDirName},
		{"all store modes valid", func(c *Config) { c.Store = "background" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_Paths tests archive and per-file path derivation.
func TestConfig_Paths(t *testing.T) {
	cfg := Config{CacheDirectory: "/var/cache/tool", Name: "build"}

	if got, want := cfg.ArchivePath(), filepath.Join("/var/cache/tool", "build.pack"); got != want {
		t.Errorf("ArchivePath() = %q, want %q", got, want)
	}
	if got, want := cfg.FileRoot(), filepath.Join("/var/cache/tool", "build"); got != want {
		t.Errorf("FileRoot() = %q, want %q", got, want)
	}
}

// TestLoad tests config file loading with duration coercion.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.yaml")
	content := []byte(`
cacheDirectory: /tmp/build-cache
name: ci
hashAlgorithm: sha256
version: "14"
loglevel: verbose
store: idle
idleTimeout: 5s
idleTimeoutForInitialStore: 500
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Name != "ci" || cfg.Store != "idle" || cfg.HashAlgorithm != "sha256" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Version != "14" {
		t.Errorf("Version = %q, want 14", cfg.Version)
	}
	if cfg.IdleTimeout != 5*time.Second {
		t.Errorf("IdleTimeout = %v, want 5s", cfg.IdleTimeout)
	}
	// Bare integers are milliseconds.
	if cfg.IdleTimeoutForInitialStore != 500*time.Millisecond {
		t.Errorf("IdleTimeoutForInitialStore = %v, want 500ms", cfg.IdleTimeoutForInitialStore)
	}
}

// TestLoad_MissingFile tests that an absent config file yields defaults.
func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load(missing) = %v, want nil", err)
	}
	if cfg.Store != "pack" {
		t.Errorf("Store = %q, want pack default", cfg.Store)
	}
}

// TestLoad_InvalidOption tests that validation failures surface.
func TestLoad_InvalidOption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.yaml")
	if err := os.WriteFile(path, []byte("store: sometimes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalidStoreMode) {
		t.Errorf("Load() = %v, want ErrInvalidStoreMode", err)
	}
}

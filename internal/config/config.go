// Package config loads tool configuration from an optional YAML file,
// ADI_-prefixed environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the default config file looked up in the working directory.
const FileName = "adi.yaml"

// envPrefix namespaces environment overrides, e.g. ADI_LOG_LEVEL.
const envPrefix = "ADI_"

// Config is the full tool configuration.
type Config struct {
	LogLevel string      `koanf:"log_level"`
	Tools    ToolsConfig `koanf:"tools"`
	Grammar  Grammar     `koanf:"grammar"`
	Ignore   []string    `koanf:"ignore"`
	Serve    Serve       `koanf:"serve"`
	Cache    CacheConfig `koanf:"cache"`
}

// ToolsConfig locates the external HDF5 command-line tools.
type ToolsConfig struct {
	H5dump string `koanf:"h5dump"`
	H5ls   string `koanf:"h5ls"`
}

// Grammar tunes serialization.
type Grammar struct {
	BalanceTolerance  float64 `koanf:"balance_tolerance"`
	ApproximateCounts bool    `koanf:"approximate_counts"`
}

// Serve configures the HTTP server.
type Serve struct {
	Addr string `koanf:"addr"`
}

// CacheConfig configures the inspection report cache.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Redis    string        `koanf:"redis"` // host:port; empty means in-memory
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Tools:    ToolsConfig{H5dump: "h5dump", H5ls: "h5ls"},
		Grammar:  Grammar{BalanceTolerance: 0.1},
		Serve:    Serve{Addr: ":8080"},
		Cache:    CacheConfig{TTL: 15 * time.Minute},
	}
}

// flagKeys maps short flag names to their nested config keys.
var flagKeys = map[string]string{
	"h5dump":      "tools.h5dump",
	"h5ls":        "tools.h5ls",
	"addr":        "serve.addr",
	"cache":       "cache.enabled",
	"cache_redis": "cache.redis",
	"cache_ttl":   "cache.ttl",
}

// Load assembles the configuration. path names an explicit config file; when
// empty, FileName in the working directory is used if present. flags may be
// nil; only flags the user actually set override the file and environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	cfg := Default()
	if path == "" {
		if _, err := os.Stat(FileName); err == nil {
			path = FileName
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(filepath.Clean(path)), kyaml.Parser()); err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// ADI_LOG_LEVEL -> log_level. Nested keys are addressed with double
	// underscores: ADI_TOOLS__H5DUMP -> tools.h5dump.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return cfg, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set.
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return cfg, fmt.Errorf("loading flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

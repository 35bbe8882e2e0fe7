package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is where init writes the configuration.
const DefaultPath = ".inkpost.yml"

const envPrefix = "INKPOST_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. INKPOST_SUPABASE__URL sets supabase.url;
// a double underscore separates nesting levels.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// The conventional Supabase variables fill in what is still missing.
	if cfg.Supabase.URL == "" {
		cfg.Supabase.URL = os.Getenv("SUPABASE_URL")
	}
	if cfg.Supabase.Key == "" {
		cfg.Supabase.Key = os.Getenv("SUPABASE_ANON_KEY")
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validBackends = map[Backend]bool{
	BackendPostgREST: true,
	BackendSQLite:    true,
	BackendPostgres:  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validBackends[c.Backend] {
		return fmt.Errorf("invalid backend %q: must be one of postgrest, sqlite, postgres", c.Backend)
	}

	switch c.Backend {
	case BackendPostgREST:
		if c.Supabase.URL == "" {
			return fmt.Errorf("supabase.url is required for the postgrest backend")
		}
		if c.Supabase.Key == "" {
			return fmt.Errorf("supabase.key is required for the postgrest backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres backend")
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Site.FeaturedCount < 0 {
		return fmt.Errorf("site.featured_count must be non-negative")
	}
	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Connect.Retries < 1 {
		return fmt.Errorf("connect.retries must be at least 1")
	}
	if c.Connect.Interval < 0 {
		return fmt.Errorf("connect.interval must be non-negative")
	}
	return nil
}

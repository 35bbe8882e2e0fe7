package config

import "time"

// Backend selects the article store.
type Backend string

const (
	BackendPostgREST Backend = "postgrest"
	BackendSQLite    Backend = "sqlite"
	BackendPostgres  Backend = "postgres"
)

// Config is the top-level inkpost configuration, corresponding to .inkpost.yml.
type Config struct {
	Backend  Backend        `yaml:"backend" koanf:"backend"`
	Supabase SupabaseConfig `yaml:"supabase" koanf:"supabase"`
	SQLite   SQLiteConfig   `yaml:"sqlite" koanf:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" koanf:"postgres"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Site     SiteConfig     `yaml:"site" koanf:"site"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Connect  ConnectConfig  `yaml:"connect" koanf:"connect"`
}

// SupabaseConfig points at the project's PostgREST endpoint.
type SupabaseConfig struct {
	URL     string        `yaml:"url" koanf:"url"`
	Key     string        `yaml:"key" koanf:"key"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" koanf:"dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Title         string `yaml:"title" koanf:"title"`
	FeaturedCount int    `yaml:"featured_count" koanf:"featured_count"`
}

type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	JSON  bool   `yaml:"json" koanf:"json"`
}

// ConnectConfig controls the startup connection check.
type ConnectConfig struct {
	Retries  int           `yaml:"retries" koanf:"retries"`
	Interval time.Duration `yaml:"interval" koanf:"interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendPostgREST,
		Supabase: SupabaseConfig{
			Timeout: 10 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: ".inkpost/inkpost.db",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Site: SiteConfig{
			Title:         "Inkpost",
			FeaturedCount: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
		Connect: ConnectConfig{
			Retries:  3,
			Interval: time.Second,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to inkpost! Let's configure your blog.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Backend selection.
	backendPrompt := promptui.Select{
		Label: "Where are articles stored",
		Items: []string{
			"postgrest  (Supabase project over HTTPS)",
			"sqlite     (local file, good for development)",
			"postgres   (direct database connection)",
		},
	}
	idx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	cfg.Backend = []Backend{BackendPostgREST, BackendSQLite, BackendPostgres}[idx]

	// 2. Backend specific settings.
	switch cfg.Backend {
	case BackendPostgREST:
		urlPrompt := promptui.Prompt{
			Label:    "Supabase project URL",
			Validate: validateURL,
		}
		if cfg.Supabase.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("supabase url: %w", err)
		}
		keyPrompt := promptui.Prompt{
			Label:    "Supabase anon key",
			Mask:     '*',
			Validate: required,
		}
		if cfg.Supabase.Key, err = keyPrompt.Run(); err != nil {
			return nil, fmt.Errorf("supabase key: %w", err)
		}
	case BackendSQLite:
		pathPrompt := promptui.Prompt{
			Label:   "Database file",
			Default: cfg.SQLite.Path,
		}
		if cfg.SQLite.Path, err = pathPrompt.Run(); err != nil {
			return nil, fmt.Errorf("sqlite path: %w", err)
		}
	case BackendPostgres:
		dsnPrompt := promptui.Prompt{
			Label:    "Postgres connection string",
			Mask:     '*',
			Validate: required,
		}
		if cfg.Postgres.DSN, err = dsnPrompt.Run(); err != nil {
			return nil, fmt.Errorf("postgres dsn: %w", err)
		}
	}

	// 3. Site title.
	titlePrompt := promptui.Prompt{
		Label:   "Site title",
		Default: cfg.Site.Title,
	}
	if cfg.Site.Title, err = titlePrompt.Run(); err != nil {
		return nil, fmt.Errorf("site title: %w", err)
	}

	// 4. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("enter an http(s) URL such as https://xyz.supabase.co")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return errors.New("enter a port between 1 and 65535")
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/inkpost/internal/blog"
	"github.com/ziadkadry99/inkpost/internal/config"
	"github.com/ziadkadry99/inkpost/internal/db"
	"github.com/ziadkadry99/inkpost/internal/logging"
	"github.com/ziadkadry99/inkpost/internal/pgstore"
	"github.com/ziadkadry99/inkpost/internal/postgrest"
	"github.com/ziadkadry99/inkpost/internal/sqlstore"
)

// app bundles what every data command needs.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	svc   *blog.Service
	close func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (run `inkpost init`): %w", err)
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	svc := blog.NewService(store,
		blog.WithLogger(log.Named("blog")),
		blog.WithRetryInterval(cfg.Connect.Interval),
	)
	return &app{
		cfg: cfg,
		log: log,
		svc: svc,
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

// openStore creates the configured backend.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (blog.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		log.Debug("using sqlite store", zap.String("path", database.Path()))
		return sqlstore.NewStore(database), func() { database.Close() }, nil

	case config.BackendPostgres:
		store, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Debug("using postgres store")
		return store, store.Close, nil

	default:
		store, err := postgrest.New(postgrest.Config{
			URL:     cfg.Supabase.URL,
			Key:     cfg.Supabase.Key,
			Timeout: cfg.Supabase.Timeout,
		}, postgrest.WithLogger(log.Named("postgrest")))
		if err != nil {
			return nil, nil, err
		}
		log.Debug("using postgrest store", zap.String("url", cfg.Supabase.URL))
		return store, func() {}, nil
	}
}

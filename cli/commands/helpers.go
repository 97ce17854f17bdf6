package commands

import (
	"fmt"

	"github.com/driftlock/driftlock/cli/internal/config"
	"github.com/driftlock/driftlock/internal/debug"
	"github.com/driftlock/driftlock/migrate"
)

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDir != "" {
		cfg.MigrationsDir = flagDir
	}
	if flagURL != "" {
		cfg.DatabaseURL = flagURL
	}
	return cfg, nil
}

// openEngine connects to the configured database and builds the engine.
// The caller owns the returned engine and must close it.
func openEngine() (*migrate.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured: set DATABASE_URL, add database_url to driftlock.yaml, or pass --url")
	}

	opts := []migrate.Option{migrate.WithLogger(debug.Logger())}
	if flagNoLock {
		opts = append(opts, migrate.WithoutLease())
	}

	engine, err := migrate.Open(cfg.DatabaseURL, cfg.MigrationsDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	debug.Debug("connected", "provider", engine.Provider, "dir", cfg.MigrationsDir)
	return engine, nil
}

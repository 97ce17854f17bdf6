// Package config resolves CLI configuration from flags, environment
// variables, .env files, and driftlock.yaml.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem seam for config and scaffolding IO.
var AppFs = afero.NewOsFs()

// Config holds the resolved CLI configuration.
type Config struct {
	MigrationsDir string
	DatabaseURL   string
}

// Load resolves configuration. Sources, lowest to highest priority:
// driftlock.yaml (cwd, $HOME, $HOME/.config/driftlock), DRIFTLOCK_* env
// variables, .env, .env.local, then DATABASE_URL from the process
// environment.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("driftlock")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(home)
	viper.AddConfigPath(filepath.Join(home, ".config", "driftlock"))

	viper.SetEnvPrefix("DRIFTLOCK")
	viper.AutomaticEnv()

	viper.SetDefault("migrations_dir", "migrations")

	// Config file is optional.
	_ = viper.ReadInConfig()

	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		MigrationsDir: viper.GetString("migrations_dir"),
		DatabaseURL:   viper.GetString("database_url"),
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	return cfg, nil
}

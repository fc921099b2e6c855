package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/docrender/go-docrender/internal/app"
	"github.com/docrender/go-docrender/internal/config"
)

// loadSettings resolves configuration in priority order: flags, then
// DOCRENDER_* variables, then the config file, then defaults.
func loadSettings(f commonFlags, env *Environment) (*config.Config, error) {
	path := f.config
	if path == "" {
		path = env.Getenv(config.EnvConfigPath)
	}

	cfg, err := app.LoadConfig(path, env.Getenv)
	if err != nil {
		return nil, err
	}

	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("effective config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, env *Environment, service string) zerolog.Logger {
	return app.NewLogger(cfg, env.Stderr, service, env.Environ())
}

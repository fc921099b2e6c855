package main

import (
	"io"
	"os"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/app"
	"github.com/docrender/go-docrender/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// NewEngine builds the browser engine from render settings.
	NewEngine func(cfg config.RenderConfig) docrender.Engine
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Getenv:    os.Getenv,
		Environ:   os.Environ,
		NewEngine: app.NewEngine,
	}
}

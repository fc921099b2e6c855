// Package app wires configuration into the pipeline, its storage and
// metrics backends, and the backend API's document store. Every binary
// builds its runtime through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/config"
	"github.com/docrender/go-docrender/internal/logging"
	"github.com/docrender/go-docrender/internal/metadata"
)

// Stack is the wired pipeline plus everything that must be closed with it.
type Stack struct {
	Pipeline *docrender.Pipeline
	Engine   *docrender.LimitedEngine
	Metrics  *docrender.Metrics

	closers []io.Closer
}

// Close releases storage clients.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Build wires the pipeline from cfg around engine.
func Build(ctx context.Context, cfg *config.Config, engine docrender.Engine, logger zerolog.Logger) (*Stack, error) {
	s := &Stack{}

	store, err := NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	catalog := docrender.NewTemplateCatalog(cfg.Catalog.Labels, cfg.Catalog.Default)
	resolver := docrender.NewResolver(catalog, cfg.Storage.Domain)

	s.Metrics = NewMetrics(cfg, logger)
	s.Engine = docrender.NewLimitedEngine(engine, docrender.ResolveConcurrency(cfg.Render.Concurrency))
	s.Pipeline = docrender.NewPipeline(s.Engine, docrender.NewPublisher(store, resolver),
		docrender.WithLogger(logger),
		docrender.WithMetrics(s.Metrics),
		docrender.WithResolver(resolver),
	)
	return s, nil
}

// NewEngine builds the go-rod engine from render settings.
func NewEngine(cfg config.RenderConfig) docrender.Engine {
	return docrender.NewRodEngine(docrender.EngineConfig{
		BrowserBin:  cfg.BrowserBin,
		NoSandbox:   cfg.NoSandbox,
		LoadTimeout: cfg.LoadTimeout,
		IdleWindow:  cfg.IdleWindow,
	})
}

// NewObjectStore selects the artifact backend.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (docrender.ObjectStore, error) {
	switch cfg.Backend {
	case config.StorageLocal:
		store, err := docrender.NewFileStore(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageGCS, "":
		var opts []option.ClientOption
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		}
		store, err := docrender.NewGCSStore(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: storage.backend %q", config.ErrInvalidValue, cfg.Backend)
	}
}

// NewMetrics pushes to a Pushgateway when one is configured and logs
// events otherwise.
func NewMetrics(cfg *config.Config, logger zerolog.Logger) *docrender.Metrics {
	var sink docrender.MetricsSink = docrender.LogSink{Logger: logger}
	if cfg.Metrics.PushgatewayURL != "" {
		sink = docrender.NewPushgatewaySink(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	}
	return docrender.NewMetrics(sink, cfg.Environment, logger, docrender.WithSinkTimeout(cfg.Metrics.Timeout))
}

// NewMetadataStore reads documents from Firestore when a project is
// configured. Without one it falls back to an empty in-memory store, and
// the returned closer is nil.
func NewMetadataStore(ctx context.Context, cfg config.APIConfig, logger zerolog.Logger) (metadata.Store, io.Closer, error) {
	if cfg.ProjectID == "" {
		logger.Warn().Msg("api.projectId not set, using in-memory document store")
		return metadata.NewMemoryStore(nil), nil, nil
	}
	client, err := metadata.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	store := metadata.NewFirestoreStore(client, cfg.Collection)
	return store, store, nil
}

// LoadConfig reads the config file at path (skipped when empty) and applies
// DOCRENDER_* overrides from getenv. The result is not yet validated so
// callers can layer flags on top.
func LoadConfig(path string, getenv func(string) string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds a process logger writing to out and reports mistyped
// DOCRENDER_* variables from environ through it.
func NewLogger(cfg *config.Config, out io.Writer, service string, environ []string) zerolog.Logger {
	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  out,
		Service: service,
	})
	for _, name := range config.UnknownEnvVars(environ) {
		logger.Warn().Str("var", name).Msg("unknown environment variable ignored")
	}
	return logger
}

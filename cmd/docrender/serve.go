package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/api"
	"github.com/docrender/go-docrender/internal/app"
)

const (
	readHeaderTimeout = 10 * time.Second

	// requestTimeoutSlack lets a pipeline call time out before the router does.
	requestTimeoutSlack = 5 * time.Second
)

// runServeCmd hosts the render pipeline over HTTP until ctx ends.
func runServeCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseServeFlags("serve", args, env.Stderr)
	if err != nil {
		if code := flagExitCode(err); code != ExitSuccess {
			fmt.Fprintln(env.Stderr, err)
			return code
		}
		return ExitSuccess
	}

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	logger := newLogger(cfg, env, "docrender-pipeline")

	st, err := app.Build(ctx, cfg, env.NewEngine(cfg.Render), logger)
	if err != nil {
		logger.Error().Err(err).Msg("wiring pipeline")
		return exitCodeFor(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing storage")
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", cfg.Server.Addr).Msg("listen failed")
		return ExitIO
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Int("concurrency", st.Engine.Size()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Msg("pipeline listening")

	if err := serve(ctx, newServer(docrender.NewHandler(st.Pipeline)), ln, cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Error().Err(err).Msg("server failed")
		return ExitGeneral
	}
	return ExitSuccess
}

// runAPICmd hosts the backend generate API until ctx ends.
func runAPICmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseServeFlags("api", args, env.Stderr)
	if err != nil {
		if code := flagExitCode(err); code != ExitSuccess {
			fmt.Fprintln(env.Stderr, err)
			return code
		}
		return ExitSuccess
	}

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	if flags.addr != "" {
		cfg.API.Addr = flags.addr
	}
	if flags.pipelineURL != "" {
		cfg.API.PipelineURL = flags.pipelineURL
	}
	logger := newLogger(cfg, env, "docrender-api")

	store, closer, err := app.NewMetadataStore(ctx, cfg.API, logger)
	if err != nil {
		logger.Error().Err(err).Msg("opening document store")
		return ExitIO
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	if cfg.API.PipelineURL == "" {
		logger.Warn().Msg("api.pipelineUrl not set, generate requests will fail")
	}

	generate := api.NewGenerateHandler(store,
		api.NewPipelineClient(cfg.API.PipelineURL, cfg.API.CallTimeout),
		cfg.API.Bucket, cfg.API.DefaultTemplate, logger)
	router := api.NewRouter(api.RouterConfig{
		Generate:       generate,
		Metrics:        app.NewMetrics(cfg, logger),
		Logger:         logger,
		AllowedOrigins: cfg.API.AllowedOrigins,
		RequestTimeout: cfg.API.CallTimeout + requestTimeoutSlack,
	})

	ln, err := net.Listen("tcp", cfg.API.Addr)
	if err != nil {
		logger.Error().Err(err).Str("addr", cfg.API.Addr).Msg("listen failed")
		return ExitIO
	}
	logger.Info().Str("addr", ln.Addr().String()).Msg("api listening")

	if err := serve(ctx, newServer(router), ln, cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Error().Err(err).Msg("server failed")
		return ExitGeneral
	}
	return ExitSuccess
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// serve runs srv on ln until ctx ends, then drains in-flight requests for
// at most grace.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Dur("grace", grace).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

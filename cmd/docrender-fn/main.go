// Command docrender-fn hosts the render pipeline on the Cloud Functions
// runtime. RenderDocument takes the request as an HTTP body;
// RenderDocumentEvent takes it as CloudEvent data.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/app"
	"github.com/docrender/go-docrender/internal/config"
)

const (
	defaultPort = "8080"

	msgUnavailable = "pipeline unavailable"
)

// instance is the lazily built pipeline shared by warm invocations.
// A failed build is retried by the next invocation.
type instance struct {
	mu       sync.Mutex
	pipeline *docrender.Pipeline
	logger   zerolog.Logger

	build func() (*docrender.Pipeline, zerolog.Logger, error)
}

func (r *instance) get() (*docrender.Pipeline, zerolog.Logger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pipeline != nil {
		return r.pipeline, r.logger, nil
	}
	pipeline, logger, err := r.build()
	if err != nil {
		return nil, logger, err
	}
	r.pipeline, r.logger = pipeline, logger
	return pipeline, logger, nil
}

var fn = &instance{build: buildFromEnv}

func init() {
	functions.HTTP("RenderDocument", fn.handleHTTP)
	functions.CloudEvent("RenderDocumentEvent", fn.handleEvent)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	if err := funcframework.Start(port); err != nil {
		fmt.Fprintf(os.Stderr, "funcframework.Start: %v\n", err)
		os.Exit(1)
	}
}

// buildFromEnv wires the pipeline from DOCRENDER_CONFIG and DOCRENDER_*
// variables. The storage client lives as long as the instance.
func buildFromEnv() (*docrender.Pipeline, zerolog.Logger, error) {
	cfg, err := app.LoadConfig(os.Getenv(config.EnvConfigPath), os.Getenv)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := app.NewLogger(cfg, os.Stdout, "docrender-fn", os.Environ())

	st, err := app.Build(context.Background(), cfg, app.NewEngine(cfg.Render), logger)
	if err != nil {
		return nil, logger, err
	}
	return st.Pipeline, logger, nil
}

// handleHTTP runs one invocation per request body.
func (r *instance) handleHTTP(w http.ResponseWriter, req *http.Request) {
	pipeline, logger, err := r.get()
	if err != nil {
		logger.Error().Err(err).Msg("pipeline initialization failed")
		docrender.WriteResponse(w, docrender.ErrorResponse(http.StatusInternalServerError, msgUnavailable, err))
		return
	}
	docrender.NewHandler(pipeline).ServeHTTP(w, req)
}

// handleEvent runs one invocation with the event data as the request.
// Returning an error marks the delivery as failed so it can be retried.
func (r *instance) handleEvent(ctx context.Context, e cloudevents.Event) error {
	pipeline, logger, err := r.get()
	if err != nil {
		logger.Error().Err(err).Msg("pipeline initialization failed")
		return err
	}

	resp := pipeline.HandleRaw(ctx, e.Data())
	log := logger.With().Str("event_id", e.ID()).Str("event_type", e.Type()).Logger()

	switch body := resp.Body.(type) {
	case docrender.SuccessBody:
		log.Info().Str("key", body.FileName).Msg("event rendered")
		return nil
	case docrender.ErrorBody:
		// A request that fails validation will fail again on redelivery.
		if resp.StatusCode == http.StatusBadRequest {
			log.Warn().Str("error", body.Message).Msg("event dropped")
			return nil
		}
		return fmt.Errorf("%s: %s", body.Error, body.Message)
	default:
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}
}

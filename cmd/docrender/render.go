package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/app"
	"github.com/docrender/go-docrender/internal/config"
	"github.com/docrender/go-docrender/internal/hints"
)

// runRenderCmd runs one invocation from a request file (or stdin) and prints
// the response.
func runRenderCmd(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseRenderFlags(args, env.Stderr)
	if err != nil {
		if code := flagExitCode(err); code != ExitSuccess {
			fmt.Fprintln(env.Stderr, err)
			return code
		}
		return ExitSuccess
	}

	cfg, err := loadSettings(flags.common, env)
	if err != nil {
		hint := ""
		if errors.Is(err, config.ErrConfigNotFound) {
			hint = hints.ForConfigNotFound()
		}
		fmt.Fprintln(env.Stderr, err.Error()+hint)
		return exitCodeFor(err)
	}
	if flags.localDir != "" {
		cfg.Storage.Backend = config.StorageLocal
		cfg.Storage.LocalDir = flags.localDir
	}
	logger := newLogger(cfg, env, "docrender-render")

	source := "-"
	if len(positional) == 1 {
		source = positional[0]
	}
	data, err := readRequest(source, env.Stdin)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	st, err := app.Build(ctx, cfg, env.NewEngine(cfg.Render), logger)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing storage")
		}
	}()

	var resp docrender.Response
	req, err := docrender.DecodeRequest(data)
	if err != nil {
		// HandleRaw reports the decode failure as a 400 response.
		resp = st.Pipeline.HandleRaw(ctx, data)
	} else {
		if req.StorageBucket == "" {
			req.StorageBucket = flags.bucket
		}
		resp = st.Pipeline.Handle(ctx, req)
	}

	enc := json.NewEncoder(env.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitIO
	}
	if hint := responseHint(resp, cfg, env); hint != "" {
		fmt.Fprintln(env.Stderr, strings.TrimPrefix(hint, "\n"))
	}
	return exitCodeForResponse(resp)
}

// responseHint suggests a fix for a failed invocation.
func responseHint(resp docrender.Response, cfg *config.Config, env *Environment) string {
	body, ok := resp.Body.(docrender.ErrorBody)
	if !ok {
		return ""
	}
	switch body.Kind {
	case docrender.KindValidation:
		if strings.Contains(body.Message, docrender.ErrMissingBucket.Error()) {
			return hints.ForMissingBucket()
		}
	case docrender.KindRender:
		inContainer, _ := isContainer(env.Getenv)
		return hints.ForBrowserLaunch(env.Getenv, inContainer)
	case docrender.KindPublish:
		return hints.ForStorage(cfg.Storage.Backend)
	}
	return ""
}

// readRequest reads the invocation payload from path, or from stdin for "-".
func readRequest(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is user-provided CLI input
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadRequest, err)
	}
	return data, nil
}

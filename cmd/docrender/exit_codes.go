package main

import (
	"errors"
	"net/http"
	"os"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/config"
)

// Exit codes for the docrender CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or request
	ExitIO      = 3 // File, storage, or network I/O
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the exit code for an error returned before or outside
// a pipeline invocation.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch docrender.KindOf(err) {
	case docrender.KindValidation:
		return ExitUsage
	case docrender.KindRender:
		return ExitBrowser
	case docrender.KindPublish:
		return ExitIO
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadRequest) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}

// exitCodeForResponse maps an invocation response onto an exit code.
func exitCodeForResponse(resp docrender.Response) int {
	if resp.StatusCode == http.StatusOK {
		return ExitSuccess
	}
	if resp.StatusCode == http.StatusBadRequest {
		return ExitUsage
	}

	body, ok := resp.Body.(docrender.ErrorBody)
	if !ok {
		return ExitGeneral
	}
	switch body.Kind {
	case docrender.KindValidation:
		return ExitUsage
	case docrender.KindRender:
		return ExitBrowser
	case docrender.KindPublish:
		return ExitIO
	default:
		return ExitGeneral
	}
}

// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"strconv"
	"strings"
)

// ForBrowserLaunch returns hints for browser launch and render errors.
// Sandbox advice is only given in CI or container environments.
func ForBrowserLaunch(getenv func(string) string, inContainer bool) string {
	var hints []string

	inCI := getenv("CI") != "" ||
		getenv("GITHUB_ACTIONS") != "" ||
		getenv("GITLAB_CI") != ""

	noSandbox, _ := strconv.ParseBool(getenv("DOCRENDER_NO_SANDBOX"))
	sandboxed := getenv("ROD_NO_SANDBOX") != "1" && !noSandbox
	if (inCI || inContainer) && sandboxed {
		hints = append(hints, "set DOCRENDER_NO_SANDBOX=true for Docker/CI")
	}

	if getenv("ROD_BROWSER_BIN") == "" && getenv("DOCRENDER_BROWSER_BIN") == "" {
		hints = append(hints, "set DOCRENDER_BROWSER_BIN to use custom Chrome")
	}

	hints = append(hints, "run 'docrender doctor' to check the environment")
	return formatHints(hints)
}

// ForStorage returns hints for upload errors on the given backend.
func ForStorage(backend string) string {
	switch backend {
	case "local":
		return format("check DOCRENDER_STORAGE_DIR exists and is writable")
	default:
		return format("check GOOGLE_APPLICATION_CREDENTIALS and write access to the bucket")
	}
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound() string {
	return format("use --config /path/to/docrender.yaml or set DOCRENDER_CONFIG")
}

// ForMissingBucket returns a hint when a request names no bucket.
func ForMissingBucket() string {
	return format("add storageBucket to the request or pass --bucket")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/config"
)

// Doctor statuses.
const (
	doctorReady    = "ready"
	doctorWarnings = "warnings"
	doctorErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"`
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	Storage  storageInfo `json:"storage"`
	Metrics  metricsInfo `json:"metrics"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found       bool   `json:"found"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	Sandbox     bool   `json:"sandbox"`
	Concurrency int    `json:"concurrency"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string   `json:"os"`
	Arch          string   `json:"arch"`
	Container     bool     `json:"container"`
	ContainerHint string   `json:"container_hint,omitempty"`
	CI            bool     `json:"ci"`
	Unknown       []string `json:"unknown_vars,omitempty"`
}

// storageInfo describes where artifacts will be written.
type storageInfo struct {
	Backend  string `json:"backend"`
	Domain   string `json:"domain"`
	LocalDir string `json:"local_dir,omitempty"`
	Writable bool   `json:"writable,omitempty"`
}

// metricsInfo describes where metrics will go.
type metricsInfo struct {
	Sink string `json:"sink"` // "pushgateway" or "log"
	URL  string `json:"url,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
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

	result := runDoctor(cfg, env)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == doctorErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(cfg *config.Config, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: doctorReady,
		Env: envInfo{
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			Unknown: config.UnknownEnvVars(env.Environ()),
		},
	}

	checkChrome(result, cfg.Render, env)
	checkEnvironment(result, cfg.Render, env)
	checkStorage(result, cfg.Storage)
	checkMetrics(result, cfg.Metrics)
	checkSystem(result)

	for _, name := range result.Env.Unknown {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Unknown variable %s is ignored", name))
	}

	if len(result.Errors) > 0 {
		result.Status = doctorErrors
	} else if len(result.Warnings) > 0 {
		result.Status = doctorWarnings
	}
	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, cfg config.RenderConfig, env *Environment) {
	result.Chrome.Concurrency = docrender.ResolveConcurrency(cfg.Concurrency)

	chromePath := cfg.BrowserBin
	if chromePath == "" {
		chromePath = env.Getenv("ROD_BROWSER_BIN")
	}
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; rod will download one on first render. Set render.browserBin to pin a binary")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- operator-configured binary
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = !cfg.NoSandbox && env.Getenv("ROD_NO_SANDBOX") != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg config.RenderConfig, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !cfg.NoSandbox && env.Getenv("ROD_NO_SANDBOX") != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Set render.noSandbox or DOCRENDER_NO_SANDBOX=true")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	if getenv("DOCRENDER_CONTAINER") == "1" {
		return true, "DOCRENDER_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	if getenv("K_SERVICE") != "" {
		return true, "K_SERVICE"
	}
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkStorage verifies the artifact backend is usable.
func checkStorage(result *doctorResult, cfg config.StorageConfig) {
	result.Storage.Backend = cfg.Backend
	result.Storage.Domain = cfg.Domain

	if cfg.Backend != config.StorageLocal {
		return
	}
	result.Storage.LocalDir = cfg.LocalDir
	if err := probeWritable(cfg.LocalDir); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Local storage directory not writable: %s", cfg.LocalDir))
		return
	}
	result.Storage.Writable = true
}

// checkMetrics reports the metrics destination.
func checkMetrics(result *doctorResult, cfg config.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		result.Metrics.Sink = "log"
		result.Warnings = append(result.Warnings,
			"metrics.pushgatewayUrl not set; metrics are written to the log only")
		return
	}
	result.Metrics.Sink = "pushgateway"
	result.Metrics.URL = cfg.PushgatewayURL
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	if err := probeWritable(tmpDir); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
		return
	}
	result.System.TempWritable = true
}

// probeWritable creates and removes a file in dir.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".docrender-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return err
	}
	return os.Remove(probe)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docrender doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found locally")
	}
	fmt.Fprintf(w, "  [OK] Concurrent browsers: %d\n", r.Chrome.Concurrency)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Storage")
	fmt.Fprintf(w, "  [OK] Backend: %s\n", r.Storage.Backend)
	fmt.Fprintf(w, "  [OK] Public domain: %s\n", r.Storage.Domain)
	if r.Storage.LocalDir != "" {
		if r.Storage.Writable {
			fmt.Fprintf(w, "  [OK] Directory: %s (writable)\n", r.Storage.LocalDir)
		} else {
			fmt.Fprintf(w, "  [ERROR] Directory: %s (not writable)\n", r.Storage.LocalDir)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Metrics")
	if r.Metrics.URL != "" {
		fmt.Fprintf(w, "  [OK] Pushgateway: %s\n", r.Metrics.URL)
	} else {
		fmt.Fprintln(w, "  [WARN] Log only")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case doctorReady:
		fmt.Fprintln(w, "Status: Ready to render")
	case doctorWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case doctorErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix marks the environment variables read by ApplyEnv.
const EnvPrefix = "DOCRENDER_"

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "DOCRENDER_CONFIG"

// knownEnvVars lists valid DOCRENDER_* environment variables.
var knownEnvVars = map[string]bool{
	EnvConfigPath: true,

	"DOCRENDER_ENVIRONMENT": true,
	"DOCRENDER_LOG_LEVEL":   true,
	"DOCRENDER_LOG_FORMAT":  true,

	"DOCRENDER_BROWSER_BIN":  true,
	"DOCRENDER_NO_SANDBOX":   true,
	"DOCRENDER_LOAD_TIMEOUT": true,
	"DOCRENDER_IDLE_WINDOW":  true,
	"DOCRENDER_CONCURRENCY":  true,

	"DOCRENDER_STORAGE_BACKEND":  true,
	"DOCRENDER_STORAGE_DOMAIN":   true,
	"DOCRENDER_STORAGE_ENDPOINT": true,
	"DOCRENDER_STORAGE_DIR":      true,

	"DOCRENDER_PUSHGATEWAY_URL":  true,
	"DOCRENDER_METRICS_JOB":      true,
	"DOCRENDER_METRICS_TIMEOUT":  true,
	"DOCRENDER_DEFAULT_TEMPLATE": true,

	"DOCRENDER_ADDR": true,

	"DOCRENDER_API_ADDR":     true,
	"DOCRENDER_PIPELINE_URL": true,
	"DOCRENDER_BUCKET":       true,
	"DOCRENDER_CALL_TIMEOUT": true,
	"DOCRENDER_PROJECT_ID":   true,
	"DOCRENDER_COLLECTION":   true,
	"DOCRENDER_CORS_ORIGINS": true,

	// Read by the doctor command only.
	"DOCRENDER_CONTAINER": true,
}

// ApplyEnv overrides cfg with every DOCRENDER_* variable that getenv
// reports as set. Environment values win over the config file; CLI flags
// are applied after this by the binaries. Malformed numbers and durations
// are errors rather than silently ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	setString("DOCRENDER_ENVIRONMENT", &cfg.Environment)
	setString("DOCRENDER_LOG_LEVEL", &cfg.Log.Level)
	setString("DOCRENDER_LOG_FORMAT", &cfg.Log.Format)

	setString("DOCRENDER_BROWSER_BIN", &cfg.Render.BrowserBin)
	if err := parseBool(getenv, "DOCRENDER_NO_SANDBOX", &cfg.Render.NoSandbox); err != nil {
		return err
	}
	if err := parseDuration(getenv, "DOCRENDER_LOAD_TIMEOUT", &cfg.Render.LoadTimeout); err != nil {
		return err
	}
	if err := parseDuration(getenv, "DOCRENDER_IDLE_WINDOW", &cfg.Render.IdleWindow); err != nil {
		return err
	}
	if err := parseInt(getenv, "DOCRENDER_CONCURRENCY", &cfg.Render.Concurrency); err != nil {
		return err
	}

	setString("DOCRENDER_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("DOCRENDER_STORAGE_DOMAIN", &cfg.Storage.Domain)
	setString("DOCRENDER_STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	setString("DOCRENDER_STORAGE_DIR", &cfg.Storage.LocalDir)

	setString("DOCRENDER_PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	setString("DOCRENDER_METRICS_JOB", &cfg.Metrics.Job)
	if err := parseDuration(getenv, "DOCRENDER_METRICS_TIMEOUT", &cfg.Metrics.Timeout); err != nil {
		return err
	}
	setString("DOCRENDER_DEFAULT_TEMPLATE", &cfg.Catalog.Default)

	setString("DOCRENDER_ADDR", &cfg.Server.Addr)

	setString("DOCRENDER_API_ADDR", &cfg.API.Addr)
	setString("DOCRENDER_PIPELINE_URL", &cfg.API.PipelineURL)
	setString("DOCRENDER_BUCKET", &cfg.API.Bucket)
	if err := parseDuration(getenv, "DOCRENDER_CALL_TIMEOUT", &cfg.API.CallTimeout); err != nil {
		return err
	}
	setString("DOCRENDER_PROJECT_ID", &cfg.API.ProjectID)
	setString("DOCRENDER_COLLECTION", &cfg.API.Collection)
	if v := getenv("DOCRENDER_CORS_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = splitList(v)
	}

	return nil
}

// UnknownEnvVars returns the DOCRENDER_* names in environ that ApplyEnv does
// not recognize. Helps catch typos like DOCRENDER_BUCKT.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, env := range environ {
		if !strings.HasPrefix(env, EnvPrefix) {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(getenv func(string) string, name string, dst *time.Duration) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidValue, name, v)
	}
	*dst = d
	return nil
}

func parseInt(getenv func(string) string, name string, dst *int) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, name, v)
	}
	*dst = n
	return nil
}

func parseBool(getenv func(string) string, name string, dst *bool) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, name, v)
	}
	*dst = b
	return nil
}

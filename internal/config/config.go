package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docrender/go-docrender/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Storage backends.
const (
	StorageGCS   = "gcs"
	StorageLocal = "local"
)

// Defaults.
const (
	DefaultEnvironment     = "production"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLoadTimeout     = 30 * time.Second
	DefaultIdleWindow      = 500 * time.Millisecond
	DefaultStorageDomain   = "storage.googleapis.com"
	DefaultLocalDir        = "artifacts"
	DefaultMetricsJob      = "docrender"
	DefaultMetricsTimeout  = 2 * time.Second
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultAPIAddr         = ":8081"
	DefaultCallTimeout     = 30 * time.Second
	DefaultCollection      = "documents"
	DefaultAPITemplate     = "executive"
)

// Bounds checked by Validate.
const (
	MaxLoadTimeout = 5 * time.Minute
	MaxConcurrency = 64
	MaxLabelLength = 50
)

// Config holds all runtime configuration for the render pipeline, its HTTP
// host and the backend API.
type Config struct {
	Environment string        `yaml:"environment"` // Metric dimension (default: production)
	Log         LogConfig     `yaml:"log"`
	Render      RenderConfig  `yaml:"render"`
	Storage     StorageConfig `yaml:"storage"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Catalog     CatalogConfig `yaml:"catalog"`
	Server      ServerConfig  `yaml:"server"`
	API         APIConfig     `yaml:"api"`
}

// LogConfig defines logger options.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // "json" or "console"
}

// RenderConfig defines browser options.
type RenderConfig struct {
	BrowserBin  string        `yaml:"browserBin"`  // Empty = ROD_BROWSER_BIN or managed download
	NoSandbox   bool          `yaml:"noSandbox"`   // Required in most containers
	LoadTimeout time.Duration `yaml:"loadTimeout"` // Upper bound on the network-idle wait
	IdleWindow  time.Duration `yaml:"idleWindow"`  // Quiet period that marks a page as loaded
	Concurrency int           `yaml:"concurrency"` // Simultaneous browsers (0 = auto)
}

// StorageConfig defines where artifacts are written.
type StorageConfig struct {
	Backend  string `yaml:"backend"`  // "gcs" or "local"
	Domain   string `yaml:"domain"`   // Public URL domain
	Endpoint string `yaml:"endpoint"` // GCS endpoint override (emulators)
	LocalDir string `yaml:"localDir"` // Root for the local backend
}

// MetricsConfig defines the metrics backend. An empty PushgatewayURL logs
// metrics instead of pushing them.
type MetricsConfig struct {
	PushgatewayURL string        `yaml:"pushgatewayUrl"`
	Job            string        `yaml:"job"`
	Timeout        time.Duration `yaml:"timeout"`
}

// CatalogConfig extends the built-in template catalog.
type CatalogConfig struct {
	Default string            `yaml:"default"` // Label for unknown template ids
	Labels  map[string]string `yaml:"labels"`  // Extra id -> label entries
}

// ServerConfig defines the HTTP host for the pipeline.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// APIConfig defines the backend API that forwards generate requests.
type APIConfig struct {
	Addr            string        `yaml:"addr"`
	PipelineURL     string        `yaml:"pipelineUrl"`
	Bucket          string        `yaml:"bucket"`
	CallTimeout     time.Duration `yaml:"callTimeout"`
	ProjectID       string        `yaml:"projectId"`  // Firestore project (empty = in-memory store)
	Collection      string        `yaml:"collection"` // Firestore collection holding documents
	DefaultTemplate string        `yaml:"defaultTemplate"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"` // CORS origins (empty = any)
}

// DefaultConfig returns a configuration suitable for local runs.
func DefaultConfig() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Log:         LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Render: RenderConfig{
			LoadTimeout: DefaultLoadTimeout,
			IdleWindow:  DefaultIdleWindow,
		},
		Storage: StorageConfig{
			Backend:  StorageGCS,
			Domain:   DefaultStorageDomain,
			LocalDir: DefaultLocalDir,
		},
		Metrics: MetricsConfig{
			Job:     DefaultMetricsJob,
			Timeout: DefaultMetricsTimeout,
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		API: APIConfig{
			Addr:            DefaultAPIAddr,
			CallTimeout:     DefaultCallTimeout,
			Collection:      DefaultCollection,
			DefaultTemplate: DefaultAPITemplate,
		},
	}
}

// Validate checks ranges and enumerations.
// Called automatically by LoadConfig and by binaries after env overrides.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log.format %q (must be json or console)", ErrInvalidValue, c.Log.Format)
	}

	if c.Render.LoadTimeout < 0 || c.Render.LoadTimeout > MaxLoadTimeout {
		return fmt.Errorf("%w: render.loadTimeout %s (must be between 0 and %s)", ErrInvalidValue, c.Render.LoadTimeout, MaxLoadTimeout)
	}
	if c.Render.IdleWindow < 0 {
		return fmt.Errorf("%w: render.idleWindow %s (must not be negative)", ErrInvalidValue, c.Render.IdleWindow)
	}
	if c.Render.LoadTimeout > 0 && c.Render.IdleWindow >= c.Render.LoadTimeout {
		return fmt.Errorf("%w: render.idleWindow %s must be shorter than render.loadTimeout %s", ErrInvalidValue, c.Render.IdleWindow, c.Render.LoadTimeout)
	}
	if c.Render.Concurrency < 0 || c.Render.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: render.concurrency %d (must be between 0 and %d)", ErrInvalidValue, c.Render.Concurrency, MaxConcurrency)
	}

	switch c.Storage.Backend {
	case StorageGCS:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("%w: storage.localDir required for the local backend", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: storage.backend %q (must be gcs or local)", ErrInvalidValue, c.Storage.Backend)
	}
	if strings.Contains(c.Storage.Domain, "/") {
		return fmt.Errorf("%w: storage.domain %q must be a host name", ErrInvalidValue, c.Storage.Domain)
	}

	if c.Metrics.PushgatewayURL != "" {
		if err := validateURL("metrics.pushgatewayUrl", c.Metrics.PushgatewayURL); err != nil {
			return err
		}
		if c.Metrics.Job == "" {
			return fmt.Errorf("%w: metrics.job required with a pushgateway", ErrInvalidValue)
		}
	}
	if c.Metrics.Timeout < 0 {
		return fmt.Errorf("%w: metrics.timeout %s (must not be negative)", ErrInvalidValue, c.Metrics.Timeout)
	}

	if len(c.Catalog.Default) > MaxLabelLength {
		return fmt.Errorf("%w: catalog.default exceeds %d characters", ErrInvalidValue, MaxLabelLength)
	}
	for id, label := range c.Catalog.Labels {
		if id == "" || label == "" {
			return fmt.Errorf("%w: catalog.labels entries need an id and a label", ErrInvalidValue)
		}
		if len(label) > MaxLabelLength {
			return fmt.Errorf("%w: catalog.labels[%s] exceeds %d characters", ErrInvalidValue, id, MaxLabelLength)
		}
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: server.shutdownTimeout %s (must not be negative)", ErrInvalidValue, c.Server.ShutdownTimeout)
	}

	if c.API.PipelineURL != "" {
		if err := validateURL("api.pipelineUrl", c.API.PipelineURL); err != nil {
			return err
		}
	}
	if c.API.CallTimeout < 0 {
		return fmt.Errorf("%w: api.callTimeout %s (must not be negative)", ErrInvalidValue, c.API.CallTimeout)
	}
	return nil
}

// validateURL requires an absolute http(s) URL.
func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s %q (must be an http or https URL)", ErrInvalidValue, field, raw)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name on top of
// DefaultConfig. If nameOrPath contains a path separator, it's treated as a
// file path. Otherwise, it's treated as a config name and searched in
// standard locations. Returns error if the file is not found.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/docrender/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "docrender", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

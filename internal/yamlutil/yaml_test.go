package yamlutil_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docrender/go-docrender/internal/yamlutil"
)

type storageSection struct {
	Backend string `yaml:"backend"`
	Domain  string `yaml:"domain"`
}

type testConfig struct {
	Environment string            `yaml:"environment"`
	Timeout     time.Duration     `yaml:"timeout"`
	Storage     storageSection    `yaml:"storage"`
	Labels      map[string]string `yaml:"labels"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
		anyErr  bool
		check   func(t *testing.T, cfg *testConfig)
	}{
		{
			name: "known fields",
			data: "environment: staging\ntimeout: 1m30s\nstorage:\n  backend: local\nlabels:\n  brochure: Brochure\n",
			check: func(t *testing.T, cfg *testConfig) {
				if cfg.Environment != "staging" {
					t.Errorf("Environment = %q", cfg.Environment)
				}
				if cfg.Timeout != 90*time.Second {
					t.Errorf("Timeout = %v, want 1m30s", cfg.Timeout)
				}
				if cfg.Storage.Backend != "local" {
					t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
				}
				if cfg.Labels["brochure"] != "Brochure" {
					t.Errorf("Labels = %v", cfg.Labels)
				}
			},
		},
		{
			name: "absent fields keep existing values",
			data: "environment: dev\n",
			check: func(t *testing.T, cfg *testConfig) {
				if cfg.Storage.Domain != "storage.googleapis.com" {
					t.Errorf("Storage.Domain = %q, want preset value", cfg.Storage.Domain)
				}
			},
		},
		{name: "unknown top-level key", data: "bucket: x\n", anyErr: true},
		{name: "unknown nested key", data: "storage:\n  region: eu\n", anyErr: true},
		{name: "type mismatch", data: "storage: [1, 2]\n", anyErr: true},
		{name: "invalid syntax", data: "environment: [unclosed\n", anyErr: true},
		{name: "empty input", data: "", wantErr: yamlutil.ErrNilData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &testConfig{Storage: storageSection{Domain: "storage.googleapis.com"}}
			err := yamlutil.UnmarshalStrict([]byte(tt.data), cfg)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UnmarshalStrict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.anyErr {
				if err == nil {
					t.Fatal("UnmarshalStrict() error = nil, want error")
				}
				if !strings.HasPrefix(err.Error(), "yamlutil: ") {
					t.Errorf("error %q should carry the package prefix", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalStrict() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestUnmarshalStrict_NilDestination(t *testing.T) {
	t.Parallel()

	if err := yamlutil.UnmarshalStrict([]byte("a: 1"), nil); !errors.Is(err, yamlutil.ErrNilDestination) {
		t.Errorf("UnmarshalStrict() error = %v, want ErrNilDestination", err)
	}
}

// TestUnmarshalStrict_InputSizeLimit mutates the package-level limit and
// therefore does not run in parallel.
func TestUnmarshalStrict_InputSizeLimit(t *testing.T) {
	original := yamlutil.MaxInputSize
	t.Cleanup(func() { yamlutil.MaxInputSize = original })
	yamlutil.MaxInputSize = 16

	err := yamlutil.UnmarshalStrict([]byte("environment: "+strings.Repeat("x", 32)), &testConfig{})
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("UnmarshalStrict() error = %v, want ErrInputTooLarge", err)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	out, err := yamlutil.Marshal(testConfig{
		Environment: "prod",
		Storage:     storageSection{Backend: "gcs"},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{"environment: prod", "backend: gcs"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("Marshal() output missing %q:\n%s", want, out)
		}
	}

	// Output decodes back under strict mode.
	var back testConfig
	if err := yamlutil.UnmarshalStrict(out, &back); err != nil {
		t.Fatalf("UnmarshalStrict(Marshal()) error = %v", err)
	}
	if back.Environment != "prod" || back.Storage.Backend != "gcs" {
		t.Errorf("decoded = %+v", back)
	}
}

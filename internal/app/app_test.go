package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/config"
)

type pdfEngine struct{}

func (pdfEngine) Acquire(context.Context) (docrender.Session, error) { return pdfSession{}, nil }

type pdfSession struct{}

func (pdfSession) Render(context.Context, string) ([]byte, error) { return []byte("%PDF-1.4 app"), nil }
func (pdfSession) Close() error                                    { return nil }

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.StorageLocal
	cfg.Storage.LocalDir = t.TempDir()
	return cfg
}

func TestBuild_LocalPipeline(t *testing.T) {
	t.Parallel()

	cfg := localConfig(t)
	cfg.Render.Concurrency = 3
	cfg.Catalog.Labels = map[string]string{"brochure": "Brochure"}

	st, err := Build(context.Background(), cfg, pdfEngine{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if st.Engine.Size() != 3 {
		t.Errorf("Engine.Size() = %d, want 3", st.Engine.Size())
	}

	resp := st.Pipeline.Handle(context.Background(), docrender.RenderRequest{
		DocumentID:    "d1",
		HTMLContent:   "<p>x</p>",
		StorageBucket: "b",
		OwnerName:     "Ann",
		DocumentTitle: "Deck",
		TemplateID:    "brochure",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, body = %+v", resp.StatusCode, resp.Body)
	}

	const key = "Documents/Ann/d1/Document-Deck-Brochure.pdf"
	body := resp.Body.(docrender.SuccessBody)
	if body.FileName != key {
		t.Errorf("FileName = %q, want %q", body.FileName, key)
	}
	if _, err := os.Stat(filepath.Join(cfg.Storage.LocalDir, "b", filepath.FromSlash(key))); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestNewObjectStore(t *testing.T) {
	t.Parallel()

	store, err := NewObjectStore(context.Background(), config.StorageConfig{Backend: config.StorageLocal, LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewObjectStore(local) error = %v", err)
	}
	if err := store.Put(context.Background(), "b", "k.pdf", strings.NewReader("x"), "application/pdf"); err != nil {
		t.Errorf("Put() error = %v", err)
	}

	_, err = NewObjectStore(context.Background(), config.StorageConfig{Backend: "s3"})
	if !errors.Is(err, config.ErrInvalidValue) {
		t.Errorf("NewObjectStore(s3) error = %v, want ErrInvalidValue", err)
	}
}

func TestNewMetrics_LogSinkWithoutGateway(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Environment = "staging"
	m := NewMetrics(cfg, zerolog.New(&buf))
	m.RecordGeneration(context.Background(), "executive", 200)

	out := buf.String()
	for _, want := range []string{docrender.MetricDocumentGeneration, "staging"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNewMetadataStore_InMemoryWithoutProject(t *testing.T) {
	t.Parallel()

	store, closer, err := NewMetadataStore(context.Background(), config.APIConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewMetadataStore() error = %v", err)
	}
	if closer != nil {
		t.Error("closer should be nil for the in-memory store")
	}
	if store == nil {
		t.Fatal("store = nil")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "docrender.yaml")
	if err := os.WriteFile(path, []byte("environment: staging\nrender:\n  concurrency: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{"DOCRENDER_CONCURRENCY": "5"}

	cfg, err := LoadConfig(path, func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging from file", cfg.Environment)
	}
	if cfg.Render.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5 from env", cfg.Render.Concurrency)
	}

	cfg, err = LoadConfig("", func(string) string { return "" })
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if cfg.Environment != config.DefaultEnvironment {
		t.Errorf("Environment = %q, want default", cfg.Environment)
	}
}

func TestNewLogger_UnknownVars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewLogger(config.DefaultConfig(), &buf, "test", []string{"DOCRENDER_BUKET=x", "HOME=/root"})

	out := buf.String()
	if !strings.Contains(out, "DOCRENDER_BUKET") {
		t.Errorf("missing warning for DOCRENDER_BUKET:\n%s", out)
	}
	if strings.Contains(out, "HOME") {
		t.Errorf("non-prefixed variable reported:\n%s", out)
	}
}

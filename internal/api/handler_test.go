package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/metadata"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fakeRenderer struct {
	mu     sync.Mutex
	calls  []docrender.RenderRequest
	result docrender.SuccessBody
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, req docrender.RenderRequest) (docrender.SuccessBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func (f *fakeRenderer) last() (docrender.RenderRequest, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return docrender.RenderRequest{}, 0
	}
	return f.calls[len(f.calls)-1], len(f.calls)
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (metadata.Document, error) {
	return metadata.Document{}, s.err
}

func seededStore() *metadata.MemoryStore {
	return metadata.NewMemoryStore(map[string]metadata.Document{
		"d1":    {OwnerName: "Ann Lee", Title: "My Resume!"},
		"blank": {},
	})
}

func newTestRouter(store metadata.Store, renderer Renderer) http.Handler {
	h := NewGenerateHandler(store, renderer, "artifacts", "executive", zerolog.Nop())
	return NewRouter(RouterConfig{Generate: h, Logger: zerolog.Nop()})
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// TestCleanTitle
// ---------------------------------------------------------------------------

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"My Resume", "My-Resume"},
		{"My Resume!", "My-Resume"},
		{"a  b\tc", "a-b-c"},
		{"Q3: Plan (draft)", "Q3-Plan-draft"},
		{"under_score-dash", "under_score-dash"},
		{"Résumé", "Rsum"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := CleanTitle(tt.in); got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestGenerate
// ---------------------------------------------------------------------------

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{result: docrender.SuccessBody{
		Message:  "document generated successfully",
		PDFURL:   "https://artifacts.storage.googleapis.com/Documents/Ann_Lee/d1/Document-My-Resume-Executive.pdf",
		FileName: "Documents/Ann_Lee/d1/Document-My-Resume-Executive.pdf",
		CVID:     "d1",
	}}
	rec := post(t, newTestRouter(seededStore(), renderer), "/pdf/d1/generate", `{"htmlContent":"<p>x</p>"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body)
	}
	var got GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if got.PDFURL != renderer.result.PDFURL || got.FileName != renderer.result.FileName {
		t.Errorf("body = %+v", got)
	}

	req, n := renderer.last()
	if n != 1 {
		t.Fatalf("renderer calls = %d, want 1", n)
	}
	want := docrender.RenderRequest{
		DocumentID:    "d1",
		HTMLContent:   "<p>x</p>",
		StorageBucket: "artifacts",
		OwnerName:     "Ann Lee",
		DocumentTitle: "My-Resume",
		TemplateID:    "executive",
	}
	if req != want {
		t.Errorf("render request = %+v, want %+v", req, want)
	}
}

func TestGenerate_Defaults(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	rec := post(t, newTestRouter(seededStore(), renderer), "/pdf/blank/generate",
		`{"htmlContent":"<p>x</p>","templateId":"brochure"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	req, _ := renderer.last()
	if req.OwnerName != defaultOwner {
		t.Errorf("OwnerName = %q, want %q", req.OwnerName, defaultOwner)
	}
	if req.DocumentTitle != defaultTitle {
		t.Errorf("DocumentTitle = %q, want %q", req.DocumentTitle, defaultTitle)
	}
	if req.TemplateID != "brochure" {
		t.Errorf("TemplateID = %q, want brochure", req.TemplateID)
	}
}

func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		store       metadata.Store
		renderErr   error
		path        string
		body        string
		wantStatus  int
		wantError   string
		wantDetails any
		wantRender  bool
	}{
		{
			name:       "missing html",
			path:       "/pdf/d1/generate",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  msgMissingHTML,
		},
		{
			name:       "empty body",
			path:       "/pdf/d1/generate",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantError:  msgMissingHTML,
		},
		{
			name:       "malformed body",
			path:       "/pdf/d1/generate",
			body:       `{"htmlContent":`,
			wantStatus: http.StatusBadRequest,
			wantError:  msgInvalidBody,
		},
		{
			name:       "unknown document",
			path:       "/pdf/nope/generate",
			body:       `{"htmlContent":"<p>x</p>"}`,
			wantStatus: http.StatusNotFound,
			wantError:  msgNotFound,
		},
		{
			name:       "lookup failure",
			store:      failingStore{err: errors.New("unavailable")},
			path:       "/pdf/d1/generate",
			body:       `{"htmlContent":"<p>x</p>"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  msgLookupFailed,
		},
		{
			name:       "pipeline not configured",
			renderErr:  ErrPipelineNotConfigured,
			path:       "/pdf/d1/generate",
			body:       `{"htmlContent":"<p>x</p>"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  msgNotConfigured,
			wantRender: true,
		},
		{
			name: "pipeline error body",
			renderErr: &CallError{
				StatusCode: http.StatusInternalServerError,
				Details:    map[string]any{"error": "document generation failed"},
			},
			path:        "/pdf/d1/generate",
			body:        `{"htmlContent":"<p>x</p>"}`,
			wantStatus:  http.StatusInternalServerError,
			wantError:   msgPipelineFailure,
			wantDetails: map[string]any{"error": "document generation failed"},
			wantRender:  true,
		},
		{
			name:        "transport error",
			renderErr:   errors.New("dial tcp: refused"),
			path:        "/pdf/d1/generate",
			body:        `{"htmlContent":"<p>x</p>"}`,
			wantStatus:  http.StatusInternalServerError,
			wantError:   msgPipelineFailure,
			wantDetails: "dial tcp: refused",
			wantRender:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := tt.store
			if store == nil {
				store = seededStore()
			}
			renderer := &fakeRenderer{err: tt.renderErr}
			rec := post(t, newTestRouter(store, renderer), tt.path, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body)
			}
			var got ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if got.Error != tt.wantError {
				t.Errorf("error = %q, want %q", got.Error, tt.wantError)
			}
			if tt.wantDetails != nil {
				gotJSON, _ := json.Marshal(got.Details)
				wantJSON, _ := json.Marshal(tt.wantDetails)
				if string(gotJSON) != string(wantJSON) {
					t.Errorf("details = %s, want %s", gotJSON, wantJSON)
				}
			}
			if _, n := renderer.last(); (n > 0) != tt.wantRender {
				t.Errorf("renderer called = %v, want %v", n > 0, tt.wantRender)
			}
		})
	}
}

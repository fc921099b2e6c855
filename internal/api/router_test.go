package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/metadata"
)

type eventSink struct {
	mu     sync.Mutex
	events []docrender.MetricEvent
}

func (s *eventSink) Put(_ context.Context, e docrender.MetricEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) find(name string) (docrender.MetricEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Name == name {
			return e, true
		}
	}
	return docrender.MetricEvent{}, false
}

type panicStore struct{}

func (panicStore) Get(context.Context, string) (metadata.Document, error) {
	panic("store exploded")
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(seededStore(), &fakeRenderer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestRouter_Preflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/pdf/d1/generate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	newTestRouter(seededStore(), &fakeRenderer{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Allow-Methods not set")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"https://ok.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want next handler to run", rec.Code)
	}
}

func TestRouter_RecordsRoutePattern(t *testing.T) {
	t.Parallel()

	sink := &eventSink{}
	h := NewGenerateHandler(seededStore(), &fakeRenderer{}, "artifacts", "", zerolog.Nop())
	router := NewRouter(RouterConfig{
		Generate: h,
		Metrics:  docrender.NewMetrics(sink, "test", zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})

	rec := post(t, router, "/pdf/nope/generate", `{"htmlContent":"<p>x</p>"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	requests, ok := sink.find(docrender.MetricHTTPRequests)
	if !ok {
		t.Fatal("HTTPRequests not recorded")
	}
	if got := requests.Dimension(docrender.DimRoute); got != "/pdf/{id}/generate" {
		t.Errorf("route = %q, want pattern", got)
	}
	if got := requests.Dimension(docrender.DimStatusRange); got != "4xx" {
		t.Errorf("status range = %q, want 4xx", got)
	}
	errs, ok := sink.find(docrender.MetricErrors)
	if !ok {
		t.Fatal("Errors not recorded")
	}
	if got := errs.Dimension(docrender.DimErrorType); got != "ClientError" {
		t.Errorf("error type = %q, want ClientError", got)
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	t.Parallel()

	sink := &eventSink{}
	h := NewGenerateHandler(panicStore{}, &fakeRenderer{}, "artifacts", "", zerolog.Nop())
	router := NewRouter(RouterConfig{
		Generate: h,
		Metrics:  docrender.NewMetrics(sink, "test", zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})

	rec := post(t, router, "/pdf/d1/generate", `{"htmlContent":"<p>x</p>"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	errs, ok := sink.find(docrender.MetricErrors)
	if !ok {
		t.Fatal("Errors not recorded")
	}
	if got := errs.Dimension(docrender.DimErrorType); got != "ServerError" {
		t.Errorf("error type = %q, want ServerError", got)
	}
}

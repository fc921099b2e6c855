package docrender

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ServeHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantKey    string // JSON field expected in body
	}{
		{
			name:       "success",
			method:     http.MethodPost,
			body:       `{"htmlContent":"<html>ok</html>","storageBucket":"b","documentId":"d1","ownerName":"Ann Lee","documentTitle":"My Resume","templateId":"executive"}`,
			wantStatus: http.StatusOK,
			wantKey:    "pdfUrl",
		},
		{
			name:       "validation failure",
			method:     http.MethodPost,
			body:       `{"storageBucket":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(&fakeEngine{}, newFakeStore(), &recordingSink{})
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			NewHandler(h.pipeline).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q", got)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if _, ok := body[tt.wantKey]; !ok {
				t.Errorf("body %v missing %q", body, tt.wantKey)
			}
		})
	}
}

func TestHandler_SuccessBodyShape(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeEngine{}, newFakeStore(), &recordingSink{})
	body := `{"htmlContent":"<html>ok</html>","storageBucket":"b","documentId":"d1","ownerName":"Ann Lee","documentTitle":"My Resume"}`
	rec := httptest.NewRecorder()

	NewHandler(h.pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	var got SuccessBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	want := SuccessBody{
		Message:  msgGenerated,
		PDFURL:   "https://b.storage.googleapis.com/Documents/Ann_Lee/d1/Document-My_Resume-Executive.pdf",
		FileName: "Documents/Ann_Lee/d1/Document-My_Resume-Executive.pdf",
		CVID:     "d1",
	}
	if got != want {
		t.Errorf("body = %+v, want %+v", got, want)
	}
}

func TestHandler_Options(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeEngine{}, newFakeStore(), &recordingSink{})
	rec := httptest.NewRecorder()

	NewHandler(h.pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if h.engine.acquireCount() != 0 {
		t.Error("preflight acquired an engine")
	}
}

func TestHandler_OversizedBody(t *testing.T) {
	t.Parallel()

	h := newHarness(&fakeEngine{}, newFakeStore(), &recordingSink{})
	big := `{"htmlContent":"` + strings.Repeat("a", maxRequestBytes) + `","storageBucket":"b"}`
	rec := httptest.NewRecorder()

	NewHandler(h.pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if h.engine.acquireCount() != 0 {
		t.Error("oversized body acquired an engine")
	}
}

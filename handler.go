package docrender

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxRequestBytes bounds invocation payloads read by Handler.
const maxRequestBytes = 10 << 20

// Handler serves the pipeline over HTTP. Any method other than OPTIONS is
// treated as an invocation whose body is the request payload.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler returns an http.Handler running p for each request.
func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		for k, v := range responseHeaders() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		WriteResponse(w, errorResponse(http.StatusBadRequest, msgInvalidRequest, validationFailure(err)))
		return
	}
	WriteResponse(w, h.pipeline.HandleRaw(r.Context(), data))
}

// ErrorResponse builds a failure response with the standard headers, for
// hosts that fail before an invocation can run.
func ErrorResponse(status int, label string, err error) Response {
	return errorResponse(status, label, err)
}

// WriteResponse writes resp as an HTTP response.
func WriteResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(resp.Body)
}

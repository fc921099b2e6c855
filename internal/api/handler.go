// Package api implements the backend endpoint that turns a stored document
// plus client-rendered HTML into a pipeline render request.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	docrender "github.com/docrender/go-docrender"
	"github.com/docrender/go-docrender/internal/metadata"
)

// Placeholders for missing metadata.
const (
	defaultOwner = "user"
	defaultTitle = "CV"
)

// maxBodyBytes bounds generate request bodies.
const maxBodyBytes = 10 << 20

// Response messages.
const (
	msgGenerated       = "document generated successfully"
	msgMissingHTML     = "htmlContent is required"
	msgInvalidBody     = "invalid request body"
	msgNotFound        = "document not found"
	msgLookupFailed    = "could not load document"
	msgNotConfigured   = "pipeline URL not configured"
	msgPipelineFailure = "error communicating with the document generation service"
)

var (
	titleDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\-_\s]`)
	titleSpaces     = regexp.MustCompile(`\s+`)
)

// GenerateRequest is the body of POST /pdf/{id}/generate.
type GenerateRequest struct {
	HTMLContent string `json:"htmlContent"`
	TemplateID  string `json:"templateId,omitempty"`
}

// GenerateResponse is returned when the pipeline published the document.
type GenerateResponse struct {
	Message  string `json:"message"`
	PDFURL   string `json:"pdfUrl"`
	FileName string `json:"fileName"`
}

// ErrorResponse is returned for every failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// GenerateHandler serves POST /pdf/{id}/generate.
type GenerateHandler struct {
	store           metadata.Store
	renderer        Renderer
	bucket          string
	defaultTemplate string
	logger          zerolog.Logger
}

// NewGenerateHandler creates a handler that looks documents up in store and
// renders them into bucket through renderer.
func NewGenerateHandler(store metadata.Store, renderer Renderer, bucket, defaultTemplate string, logger zerolog.Logger) *GenerateHandler {
	if defaultTemplate == "" {
		defaultTemplate = "executive"
	}
	return &GenerateHandler{
		store:           store,
		renderer:        renderer,
		bucket:          bucket,
		defaultTemplate: defaultTemplate,
		logger:          logger,
	}
}

// Generate handles POST /pdf/{id}/generate.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	log := h.logger.With().Str("document_id", id).Logger()

	var body GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody, Details: err.Error()})
		return
	}
	if body.HTMLContent == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgMissingHTML})
		return
	}

	doc, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) || errors.Is(err, metadata.ErrEmptyID) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: msgNotFound})
			return
		}
		log.Error().Err(err).Msg("document lookup failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgLookupFailed, Details: err.Error()})
		return
	}

	owner := doc.OwnerName
	if owner == "" {
		owner = defaultOwner
	}
	title := doc.Title
	if title == "" {
		title = defaultTitle
	}
	templateID := body.TemplateID
	if templateID == "" {
		templateID = h.defaultTemplate
	}

	req := docrender.RenderRequest{
		DocumentID:    id,
		HTMLContent:   body.HTMLContent,
		StorageBucket: h.bucket,
		OwnerName:     owner,
		DocumentTitle: CleanTitle(title),
		TemplateID:    templateID,
	}

	log.Info().
		Str("template_id", templateID).
		Str("title", req.DocumentTitle).
		Msg("forwarding render request")

	result, err := h.renderer.Render(ctx, req)
	if err != nil {
		if errors.Is(err, ErrPipelineNotConfigured) {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msgNotConfigured})
			return
		}
		log.Error().Err(err).Msg("pipeline call failed")
		resp := ErrorResponse{Error: msgPipelineFailure, Details: err.Error()}
		var callErr *CallError
		if errors.As(err, &callErr) && callErr.Details != nil {
			resp.Details = callErr.Details
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Message:  msgGenerated,
		PDFURL:   result.PDFURL,
		FileName: result.FileName,
	})
}

// CleanTitle drops characters outside [A-Za-z0-9-_ ] and turns whitespace
// runs into single hyphens.
func CleanTitle(title string) string {
	return titleSpaces.ReplaceAllString(titleDisallowed.ReplaceAllString(title, ""), "-")
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "docrender-api"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

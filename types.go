package docrender

import "time"

// Content type of published artifacts.
const contentTypePDF = "application/pdf"

// RenderRequest describes one document to render and publish.
type RenderRequest struct {
	DocumentID    string `json:"documentId,omitempty"`
	HTMLContent   string `json:"htmlContent"`
	StorageBucket string `json:"storageBucket"`
	OwnerName     string `json:"ownerName,omitempty"`
	DocumentTitle string `json:"documentTitle,omitempty"`
	TemplateID    string `json:"templateId,omitempty"`
}

// Validate checks that the fields required before any engine is started
// are present.
func (r RenderRequest) Validate() error {
	if r.HTMLContent == "" {
		return ErrMissingHTML
	}
	if r.StorageBucket == "" {
		return ErrMissingBucket
	}
	return nil
}

// ArtifactDescriptor locates a published artifact.
type ArtifactDescriptor struct {
	StorageKey    string
	PublicURL     string
	TemplateLabel string
}

// Status classifies how an invocation ended.
type Status string

// Invocation statuses.
const (
	StatusSuccess           Status = "success"
	StatusValidationFailure Status = "validation-failure"
	StatusRenderFailure     Status = "render-failure"
	StatusPublishFailure    Status = "publish-failure"
)

// statusFor maps a failure kind onto an invocation status.
func statusFor(kind Kind) Status {
	switch kind {
	case KindValidation:
		return StatusValidationFailure
	case KindPublish:
		return StatusPublishFailure
	default:
		return StatusRenderFailure
	}
}

// RenderOutcome is the ephemeral result of one invocation.
// It is consumed by the metrics emitter and the response builder, then dropped.
type RenderOutcome struct {
	Payload   []byte
	Size      int
	PageCount int // 0 when the PDF could not be inspected
	Elapsed   time.Duration
	Status    Status
	Artifact  ArtifactDescriptor
	Err       error
}

// SuccessBody is the JSON body returned for a published document.
type SuccessBody struct {
	Message  string `json:"message"`
	PDFURL   string `json:"pdfUrl"`
	FileName string `json:"fileName"`
	CVID     string `json:"cvId,omitempty"`
}

// ErrorBody is the JSON body returned for any failed invocation.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Response is the HTTP-style result of one invocation.
// Body is either a SuccessBody or an ErrorBody.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
}

// responseHeaders returns the headers attached to every response.
func responseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

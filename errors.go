package docrender

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline operations.
var (
	// Request validation errors.
	ErrMissingHTML      = errors.New("htmlContent is required")
	ErrMissingBucket    = errors.New("storageBucket is required")
	ErrMalformedRequest = errors.New("malformed render request")

	// Render engine errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")

	// Publishing errors.
	ErrUpload = errors.New("artifact upload failed")
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind string

// Failure kinds.
const (
	KindValidation Kind = "validation"
	KindRender     Kind = "render"
	KindPublish    Kind = "publish"
	KindInternal   Kind = "internal"
)

// Failure is the typed error raised by pipeline stages.
// The orchestrator is the only component that turns it into a response.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// validationFailure, renderFailure and publishFailure wrap err with its stage.
func validationFailure(err error) error { return &Failure{Kind: KindValidation, Err: err} }
func renderFailure(err error) error     { return &Failure{Kind: KindRender, Err: err} }
func publishFailure(err error) error    { return &Failure{Kind: KindPublish, Err: err} }

// KindOf reports the failure kind of err, or KindInternal when err was not
// raised by a pipeline stage.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

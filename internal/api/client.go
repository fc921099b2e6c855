package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	docrender "github.com/docrender/go-docrender"
)

// DefaultCallTimeout bounds one call to the render pipeline.
const DefaultCallTimeout = 30 * time.Second

// maxResponseBytes bounds pipeline responses read by the client.
const maxResponseBytes = 1 << 20

// ErrPipelineNotConfigured is returned when no pipeline URL is set.
var ErrPipelineNotConfigured = errors.New("pipeline URL not configured")

// Renderer submits render requests to the pipeline.
type Renderer interface {
	Render(ctx context.Context, req docrender.RenderRequest) (docrender.SuccessBody, error)
}

// Compile-time interface check
var _ Renderer = (*PipelineClient)(nil)

// CallError reports a pipeline call that failed in transport or returned a
// non-2xx status. Details holds the pipeline's JSON body when there was one.
type CallError struct {
	StatusCode int // 0 for transport failures
	Details    any
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pipeline returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("pipeline call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// PipelineClient posts render requests to the pipeline's HTTP endpoint.
type PipelineClient struct {
	url    string
	client *http.Client
}

// NewPipelineClient creates a client for url. A zero timeout selects
// DefaultCallTimeout.
func NewPipelineClient(url string, timeout time.Duration) *PipelineClient {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &PipelineClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Render sends req and decodes the success body.
func (c *PipelineClient) Render(ctx context.Context, req docrender.RenderRequest) (docrender.SuccessBody, error) {
	if c.url == "" {
		return docrender.SuccessBody{}, ErrPipelineNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return docrender.SuccessBody{}, fmt.Errorf("encoding render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return docrender.SuccessBody{}, fmt.Errorf("building pipeline request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return docrender.SuccessBody{}, &CallError{Details: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return docrender.SuccessBody{}, &CallError{Details: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return docrender.SuccessBody{}, &CallError{
			StatusCode: resp.StatusCode,
			Details:    decodeDetails(body),
		}
	}

	var out docrender.SuccessBody
	if err := json.Unmarshal(body, &out); err != nil {
		return docrender.SuccessBody{}, &CallError{Details: "invalid pipeline response", Err: err}
	}
	return out, nil
}

// decodeDetails returns body as JSON when it parses, otherwise as text.
func decodeDetails(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

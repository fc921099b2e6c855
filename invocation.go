package docrender

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// maxEnvelopeDepth bounds how many string/body wrappers DecodeRequest peels.
const maxEnvelopeDepth = 3

// wireRequest is the accepted JSON shape, including the legacy field names
// still sent by older backends.
type wireRequest struct {
	DocumentID    string          `json:"documentId"`
	HTMLContent   string          `json:"htmlContent"`
	StorageBucket string          `json:"storageBucket"`
	OwnerName     string          `json:"ownerName"`
	DocumentTitle string          `json:"documentTitle"`
	TemplateID    string          `json:"templateId"`
	Body          json.RawMessage `json:"body"`

	// Legacy aliases.
	CVID     string `json:"cvId"`
	S3Bucket string `json:"s3Bucket"`
	UserName string `json:"userName"`
	CVTitle  string `json:"cvTitle"`
}

// DecodeRequest parses an invocation payload. The payload may be the request
// object itself, a JSON string holding it, or a gateway envelope whose "body"
// field holds it (as a string or an object). Decoding errors are validation
// failures.
func DecodeRequest(data []byte) (RenderRequest, error) {
	return decodeRequest(data, 0)
}

func decodeRequest(data []byte, depth int) (RenderRequest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return RenderRequest{}, validationFailure(fmt.Errorf("%w: empty body", ErrMalformedRequest))
	}
	if depth > maxEnvelopeDepth {
		return RenderRequest{}, validationFailure(fmt.Errorf("%w: too many nested envelopes", ErrMalformedRequest))
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return RenderRequest{}, validationFailure(fmt.Errorf("%w: %v", ErrMalformedRequest, err))
		}
		return decodeRequest([]byte(inner), depth+1)
	}

	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return RenderRequest{}, validationFailure(fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	if body := bytes.TrimSpace(w.Body); len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		return decodeRequest(body, depth+1)
	}

	return RenderRequest{
		DocumentID:    firstNonEmpty(w.DocumentID, w.CVID),
		HTMLContent:   w.HTMLContent,
		StorageBucket: firstNonEmpty(w.StorageBucket, w.S3Bucket),
		OwnerName:     firstNonEmpty(w.OwnerName, w.UserName),
		DocumentTitle: firstNonEmpty(w.DocumentTitle, w.CVTitle),
		TemplateID:    w.TemplateID,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

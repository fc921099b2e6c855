package docrender

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// Publisher uploads rendered artifacts and reports where they live.
type Publisher struct {
	store    ObjectStore
	resolver *Resolver
}

// NewPublisher creates a Publisher writing to store. The resolver supplies
// public URLs; nil selects the default storage domain.
func NewPublisher(store ObjectStore, resolver *Resolver) *Publisher {
	if resolver == nil {
		resolver = NewResolver(nil, "")
	}
	return &Publisher{store: store, resolver: resolver}
}

// Publish writes payload to bucket/key in a single attempt and returns the
// public URL. The payload is not re-validated.
func (p *Publisher) Publish(ctx context.Context, bucket, key string, payload []byte, contentType string) (string, error) {
	if err := p.store.Put(ctx, bucket, key, bytes.NewReader(payload), contentType); err != nil {
		return "", publishFailure(fmt.Errorf("%w: %s/%s%s: %w", ErrUpload, bucket, key, statusSuffix(err), err))
	}
	return p.resolver.PublicURL(bucket, key), nil
}

// statusSuffix names the HTTP status of storage API errors.
func statusSuffix(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Sprintf(" (status %d)", gerr.Code)
	}
	return ""
}

package docrender

import (
	"fmt"
	"strings"
)

// Placeholders for absent naming fields.
const (
	defaultOwner      = "user"
	defaultTitle      = "CV"
	defaultDocumentID = "unknown"
)

// DefaultStorageDomain is the virtual-hosted bucket domain for GCS.
const DefaultStorageDomain = "storage.googleapis.com"

// keyFormat is Documents/{owner}/{documentId}/Document-{title}-{label}.pdf.
const keyFormat = "Documents/%s/%s/Document-%s-%s.pdf"

// Resolver derives storage keys and public URLs for artifacts.
type Resolver struct {
	catalog *TemplateCatalog
	domain  string
}

// NewResolver creates a Resolver. A nil catalog selects the built-in one and
// an empty domain selects DefaultStorageDomain.
func NewResolver(catalog *TemplateCatalog, domain string) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if domain == "" {
		domain = DefaultStorageDomain
	}
	return &Resolver{catalog: catalog, domain: strings.Trim(domain, "./")}
}

// StorageKey builds the canonical key for a document.
// Owner and title are sanitized independently and fall back to placeholders
// when empty. The document id is filtered the same way so it cannot add
// path segments; safe opaque ids pass through unchanged.
func (r *Resolver) StorageKey(owner, documentID, title, templateID string) string {
	if owner == "" {
		owner = defaultOwner
	}
	if title == "" {
		title = defaultTitle
	}
	if documentID == "" {
		documentID = defaultDocumentID
	}
	return fmt.Sprintf(keyFormat,
		Sanitize(owner),
		Sanitize(documentID),
		Sanitize(title),
		r.catalog.Label(templateID),
	)
}

// PublicURL returns the virtual-hosted URL of key in bucket.
func (r *Resolver) PublicURL(bucket, key string) string {
	return "https://" + bucket + "." + r.domain + "/" + key
}

// Resolve builds the artifact descriptor for req.
func (r *Resolver) Resolve(req RenderRequest) ArtifactDescriptor {
	key := r.StorageKey(req.OwnerName, req.DocumentID, req.DocumentTitle, req.TemplateID)
	return ArtifactDescriptor{
		StorageKey:    key,
		PublicURL:     r.PublicURL(req.StorageBucket, key),
		TemplateLabel: r.catalog.Label(req.TemplateID),
	}
}

// Sanitize replaces every rune outside [A-Za-z0-9-_] with '_'.
// The result is stable under repeated application.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if isKeyRune(r) {
			return r
		}
		return '_'
	}, s)
}

func isKeyRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '-' || r == '_'
}

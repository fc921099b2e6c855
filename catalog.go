package docrender

import "maps"

// DefaultTemplateLabel is used when a template id is absent or unknown.
const DefaultTemplateLabel = "Executive"

// builtinTemplates maps template ids to the labels used in storage keys.
var builtinTemplates = map[string]string{
	"executive":          "Executive",
	"minimal-premium":    "Minimalist",
	"minimalist-premium": "Minimalist",
	"sidebar-dark":       "Sidebar",
	"modern-grid":        "ModernGrid",
	"compact":            "Compact",
	"elegant":            "Elegant",
}

// TemplateCatalog is an immutable template id to label lookup.
// Build it once at startup; it is safe for concurrent use.
type TemplateCatalog struct {
	labels       map[string]string
	defaultLabel string
}

// NewTemplateCatalog returns the built-in catalog extended with extra entries.
// Extra entries override built-ins with the same id. An empty defaultLabel
// selects DefaultTemplateLabel.
func NewTemplateCatalog(extra map[string]string, defaultLabel string) *TemplateCatalog {
	labels := maps.Clone(builtinTemplates)
	for id, label := range extra {
		if id == "" || label == "" {
			continue
		}
		labels[id] = label
	}
	if defaultLabel == "" {
		defaultLabel = DefaultTemplateLabel
	}
	return &TemplateCatalog{labels: labels, defaultLabel: defaultLabel}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *TemplateCatalog {
	return NewTemplateCatalog(nil, "")
}

// Label returns the label for id, or the default label when id is unknown.
func (c *TemplateCatalog) Label(id string) string {
	if label, ok := c.labels[id]; ok {
		return label
	}
	return c.defaultLabel
}

// Default returns the fallback label.
func (c *TemplateCatalog) Default() string {
	return c.defaultLabel
}

// Len returns the number of known template ids.
func (c *TemplateCatalog) Len() int {
	return len(c.labels)
}

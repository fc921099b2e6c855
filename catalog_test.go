package docrender

import "testing"

func TestTemplateCatalog_Label(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()

	tests := []struct {
		id   string
		want string
	}{
		{id: "executive", want: "Executive"},
		{id: "minimal-premium", want: "Minimalist"},
		{id: "minimalist-premium", want: "Minimalist"},
		{id: "sidebar-dark", want: "Sidebar"},
		{id: "modern-grid", want: "ModernGrid"},
		{id: "compact", want: "Compact"},
		{id: "elegant", want: "Elegant"},
		{id: "", want: DefaultTemplateLabel},
		{id: "Executive", want: DefaultTemplateLabel}, // ids are case-sensitive
		{id: "unknown-template", want: DefaultTemplateLabel},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()

			if got := c.Label(tt.id); got != tt.want {
				t.Errorf("Label(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestNewTemplateCatalog(t *testing.T) {
	t.Parallel()

	c := NewTemplateCatalog(map[string]string{
		"brochure":  "Brochure",
		"executive": "Exec",
		"":          "Ignored",
		"blank":     "",
	}, "Fallback")

	if got := c.Label("brochure"); got != "Brochure" {
		t.Errorf("Label(brochure) = %q, want Brochure", got)
	}
	if got := c.Label("executive"); got != "Exec" {
		t.Errorf("Label(executive) = %q, want Exec", got)
	}
	if got := c.Label("blank"); got != "Fallback" {
		t.Errorf("Label(blank) = %q, want Fallback", got)
	}
	if got := c.Default(); got != "Fallback" {
		t.Errorf("Default() = %q, want Fallback", got)
	}
	if got, want := c.Len(), len(builtinTemplates)+1; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestNewTemplateCatalog_DoesNotMutateBuiltins(t *testing.T) {
	t.Parallel()

	_ = NewTemplateCatalog(map[string]string{"executive": "Changed"}, "")

	if got := DefaultCatalog().Label("executive"); got != "Executive" {
		t.Errorf("built-in label changed to %q", got)
	}
}

package host

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-widgetsync/pkg/param"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitizer scrubs widget-supplied display text before the host renders it.
// The widget sits on the other side of a trust boundary; its labels and
// feedback end up inside host UI.
type Sanitizer interface {
	Sanitize(raw string) string
}

type textSanitizer struct{}

// NewTextSanitizer returns the default sanitizer: all markup stripped,
// plain text retained.
func NewTextSanitizer() Sanitizer {
	return textSanitizer{}
}

func (textSanitizer) Sanitize(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy.Sanitize(raw)
}

// SanitizeSchema returns a copy of s with every display string (labels,
// descriptions, folder titles) passed through the sanitizer. Structural
// attributes and values are untouched.
func SanitizeSchema(s param.Schema, sanitizer Sanitizer) param.Schema {
	if sanitizer == nil {
		return s
	}
	var out param.Schema
	for _, key := range s.Keys() {
		field, _ := s.Get(key)
		field.Label = sanitizer.Sanitize(field.Label)
		field.Description = sanitizer.Sanitize(field.Description)
		field.Title = sanitizer.Sanitize(field.Title)
		if field.IsFolder() && field.Fields != nil {
			nested := SanitizeSchema(*field.Fields, sanitizer)
			field.Fields = &nested
		}
		out.MustAdd(key, field)
	}
	return out
}

func sanitizeText(sanitizer Sanitizer, raw string) string {
	if sanitizer == nil {
		return raw
	}
	return sanitizer.Sanitize(raw)
}

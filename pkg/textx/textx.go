// Package textx holds the text clean-up applied to job descriptions and
// screening answers before they reach the engine.
package textx

import (
	"strings"
	"unicode"
)

// SanitizeText drops control characters other than tab, newline and carriage
// return, replaces invalid UTF-8 and trims surrounding space.
func SanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "�")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeAll applies SanitizeText to every element. Length is preserved so
// answers stay aligned with their questions.
func SanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = SanitizeText(s)
	}
	return out
}

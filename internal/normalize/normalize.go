// Package normalize canonicalizes user-entered text before it is compared or stored.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ConceptName returns the canonical concept key for a translation:
// NFC-composed, trimmed, and lower-cased. An empty result means the entry
// carries no concept.
func ConceptName(translation string) string {
	s := strings.TrimSpace(norm.NFC.String(translation))
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}

// CatalogName trims a dialect or category name and collapses inner runs of
// whitespace. Case is preserved; catalog names are displayed as entered.
func CatalogName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// Tags trims every tag, drops empties and duplicates, and keeps first-seen order.
// The result is never nil.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(norm.NFC.String(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Fold lower-cases s for case-insensitive matching.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

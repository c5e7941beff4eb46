// Package search indexes the global entry catalog for Explore queries.
// It supports free-text search over terms, meanings, transliterations and
// tags, plus exact dialect, category, type and concept filters.
package search

import (
	"strings"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/normalize"
)

// EntryDocument is the indexed form of an entry.
//
// The *_raw fields hold lower-cased copies under the keyword analyzer so
// that substring queries match the way the in-memory filter does.
type EntryDocument struct {
	ID              string   `json:"id"`
	Term            string   `json:"term"`
	Translation     string   `json:"translation"`
	Transliteration string   `json:"transliteration"`
	Tags            []string `json:"tags,omitempty"`
	Dialect         string   `json:"dialect"`
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Concept         string   `json:"concept,omitempty"`
	OwnerID         string   `json:"owner_id"`
	Upvotes         int      `json:"upvotes"`
	CreatedAt       int64    `json:"created_at"`
}

// NewEntryDocument converts an entry for indexing.
func NewEntryDocument(e *domain.Entry) *EntryDocument {
	tags := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = strings.ToLower(t)
	}
	return &EntryDocument{
		ID:              e.ID,
		Term:            e.Term,
		Translation:     e.Translation,
		Transliteration: e.Transliteration,
		Tags:            tags,
		Dialect:         e.Dialect,
		Category:        e.Category,
		Type:            string(e.Type),
		Concept:         normalize.ConceptName(e.Translation),
		OwnerID:         e.OwnerID,
		Upvotes:         e.Upvotes,
		CreatedAt:       e.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *EntryDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":                  d.ID,
		"term":                d.Term,
		"term_raw":            strings.ToLower(d.Term),
		"translation":         d.Translation,
		"translation_raw":     strings.ToLower(d.Translation),
		"transliteration":     d.Transliteration,
		"transliteration_raw": strings.ToLower(d.Transliteration),
		"dialect":             d.Dialect,
		"category":            d.Category,
		"type":                d.Type,
		"owner_id":            d.OwnerID,
		"upvotes":             d.Upvotes,
		"created_at":          d.CreatedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Concept != "" {
		m["concept"] = d.Concept
	}
	return m
}

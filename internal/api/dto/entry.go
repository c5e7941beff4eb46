package dto

import (
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
)

// EnrichmentBody carries generated insights.
type EnrichmentBody struct {
	Synonyms         []string `json:"synonyms,omitempty" maxItems:"50" doc:"Related terms"`
	ExampleUsage     string   `json:"example_usage,omitempty" doc:"Sentence using the term"`
	CulturalContext  string   `json:"cultural_context,omitempty" doc:"Where and how the term is used"`
	GrammaticalNotes string   `json:"grammatical_notes,omitempty" doc:"Morphology and usage notes"`
}

// EntryRequest is the body for saving an entry. The id comes from the path
// and the owner from the token.
type EntryRequest struct {
	Term            string          `json:"term" minLength:"1" maxLength:"500" doc:"Arabic term"`
	Transliteration string          `json:"transliteration,omitempty" maxLength:"500" doc:"Latin transliteration"`
	Translation     string          `json:"translation,omitempty" maxLength:"500" doc:"English translation"`
	Dialect         string          `json:"dialect,omitempty" maxLength:"100" doc:"Dialect name"`
	Category        string          `json:"category,omitempty" maxLength:"100" doc:"Category name"`
	Type            string          `json:"type" enum:"word,phrase,idiom,slang,grammar,cultural,other" doc:"Entry type"`
	Tags            []string        `json:"tags,omitempty" maxItems:"50" doc:"Free-form tags"`
	Notes           string          `json:"notes,omitempty" maxLength:"5000" doc:"Personal notes"`
	AIEnrichment    *EnrichmentBody `json:"ai_enrichment,omitempty" doc:"Generated insights"`
	HasAIInsights   bool            `json:"has_ai_insights,omitempty" doc:"Whether insights are attached"`
	CreatedAt       time.Time       `json:"created_at,omitempty" doc:"Creation time"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty" doc:"Last update time"`
}

// FromEntry builds the request body for e.
func FromEntry(e *domain.Entry) EntryRequest {
	r := EntryRequest{
		Term:            e.Term,
		Transliteration: e.Transliteration,
		Translation:     e.Translation,
		Dialect:         e.Dialect,
		Category:        e.Category,
		Type:            string(e.Type),
		Tags:            e.Tags,
		Notes:           e.Notes,
		HasAIInsights:   e.HasAIInsights,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.AIEnrichment != nil {
		r.AIEnrichment = &EnrichmentBody{
			Synonyms:         e.AIEnrichment.Synonyms,
			ExampleUsage:     e.AIEnrichment.ExampleUsage,
			CulturalContext:  e.AIEnrichment.CulturalContext,
			GrammaticalNotes: e.AIEnrichment.GrammaticalNotes,
		}
	}
	return r
}

// ToEntry converts the body into an entry with the given id. Missing
// timestamps are set to now.
func (r EntryRequest) ToEntry(id string) *domain.Entry {
	e := &domain.Entry{
		ID:              id,
		Term:            r.Term,
		Transliteration: r.Transliteration,
		Translation:     r.Translation,
		Dialect:         r.Dialect,
		Category:        r.Category,
		Type:            domain.EntryType(r.Type),
		Tags:            r.Tags,
		Notes:           r.Notes,
		HasAIInsights:   r.HasAIInsights,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if r.AIEnrichment != nil {
		e.AIEnrichment = &domain.Enrichment{
			Synonyms:         r.AIEnrichment.Synonyms,
			ExampleUsage:     r.AIEnrichment.ExampleUsage,
			CulturalContext:  r.AIEnrichment.CulturalContext,
			GrammaticalNotes: r.AIEnrichment.GrammaticalNotes,
		}
		if e.AIEnrichment.Synonyms == nil {
			e.AIEnrichment.Synonyms = []string{}
		}
	}
	if e.CreatedAt.IsZero() {
		e.InitTimestamps()
	} else if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	return e
}

// SavedEntry is returned after a save. ConceptID is the concept the store
// resolved for the translation.
type SavedEntry struct {
	ID        string `json:"id" doc:"Entry ID"`
	OwnerID   string `json:"owner_id" doc:"Owning user"`
	ConceptID string `json:"concept_id,omitempty" doc:"Resolved concept ID"`
}

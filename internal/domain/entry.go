package domain

import (
	"slices"
	"time"
)

// EntryType classifies what kind of vocabulary an entry records.
type EntryType string

const (
	EntryTypeWord     EntryType = "word"
	EntryTypePhrase   EntryType = "phrase"
	EntryTypeIdiom    EntryType = "idiom"
	EntryTypeSlang    EntryType = "slang"
	EntryTypeGrammar  EntryType = "grammar"
	EntryTypeCultural EntryType = "cultural"
	EntryTypeOther    EntryType = "other"
)

// EntryTypes lists every valid entry type in display order.
var EntryTypes = []EntryType{
	EntryTypeWord, EntryTypePhrase, EntryTypeIdiom, EntryTypeSlang,
	EntryTypeGrammar, EntryTypeCultural, EntryTypeOther,
}

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	return slices.Contains(EntryTypes, t)
}

// Enrichment is the AI-generated supplement attached to an entry.
type Enrichment struct {
	Synonyms         []string `json:"synonyms"`
	ExampleUsage     string   `json:"example_usage"`
	CulturalContext  string   `json:"cultural_context"`
	GrammaticalNotes string   `json:"grammatical_notes"`
}

// Clone returns a deep copy.
func (e *Enrichment) Clone() *Enrichment {
	if e == nil {
		return nil
	}
	c := *e
	c.Synonyms = slices.Clone(e.Synonyms)
	return &c
}

// Entry is a single vocabulary record.
//
// OwnerID and ConceptID are empty until assigned; the persistence layer stores
// empty values as NULL. Upvotes and Downvotes are a projection of the vote rows
// and are never negative.
type Entry struct {
	ID              string      `json:"id"`
	Term            string      `json:"term" validate:"required,max=500"`
	Transliteration string      `json:"transliteration" validate:"max=500"`
	Translation     string      `json:"translation" validate:"max=500"`
	Dialect         string      `json:"dialect" validate:"max=100"`
	Category        string      `json:"category" validate:"max=100"`
	Type            EntryType   `json:"type" validate:"required,entry_type"`
	Tags            []string    `json:"tags" validate:"max=50,dive,max=64"`
	Notes           string      `json:"notes" validate:"max=5000"`
	AIEnrichment    *Enrichment `json:"ai_enrichment,omitempty"`
	HasAIInsights   bool        `json:"has_ai_insights"`
	OwnerID         string      `json:"owner_id,omitempty"`
	ConceptID       string      `json:"concept_id,omitempty"`
	Upvotes         int         `json:"upvotes"`
	Downvotes       int         `json:"downvotes"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (e *Entry) InitTimestamps() {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch bumps UpdatedAt. The timestamp never moves backwards, even if the
// wall clock does.
func (e *Entry) Touch() {
	now := time.Now()
	if now.After(e.UpdatedAt) {
		e.UpdatedAt = now
	}
}

// Clone returns a deep copy so cache readers can never alias cache state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Tags = slices.Clone(e.Tags)
	c.AIEnrichment = e.AIEnrichment.Clone()
	return &c
}

// ContentChanged reports whether any field that feeds the enrichment prompt
// differs from prev. Notes and tags are not part of the set.
func (e *Entry) ContentChanged(prev *Entry) bool {
	if prev == nil {
		return true
	}
	return e.Term != prev.Term ||
		e.Translation != prev.Translation ||
		e.Dialect != prev.Dialect ||
		e.Category != prev.Category ||
		e.Type != prev.Type ||
		e.Transliteration != prev.Transliteration
}

// NeedsEnrichment reports whether an update from prev to e must regenerate insights.
func (e *Entry) NeedsEnrichment(prev *Entry) bool {
	return !e.HasAIInsights || e.ContentChanged(prev)
}

// InsightsConsistent checks that the insights gate never claims a missing record.
func (e *Entry) InsightsConsistent() bool {
	return !e.HasAIInsights || e.AIEnrichment != nil
}

// ApplyEnrichment attaches a generated enrichment and opens the insights gate.
func (e *Entry) ApplyEnrichment(r Enrichment) {
	e.AIEnrichment = r.Clone()
	if e.AIEnrichment.Synonyms == nil {
		e.AIEnrichment.Synonyms = []string{}
	}
	e.HasAIInsights = true
	e.Touch()
}

// SameVocabulary reports whether two entries record the same term with the
// same meaning in the same dialect.
func (e *Entry) SameVocabulary(other *Entry) bool {
	return e.Term == other.Term &&
		e.Translation == other.Translation &&
		e.Dialect == other.Dialect
}

// Fork copies the content of e into a new entry owned by ownerID.
// Identity, owner, timestamps, and vote counters are fresh; tags and any
// existing enrichment are preserved.
func (e *Entry) Fork(newID, ownerID string) *Entry {
	f := e.Clone()
	f.ID = newID
	f.OwnerID = ownerID
	f.Upvotes = 0
	f.Downvotes = 0
	f.InitTimestamps()
	return f
}

// CatalogValue returns the dialect or category name the entry is filed under.
func (e *Entry) CatalogValue(kind CatalogKind) string {
	if kind == CatalogDialect {
		return e.Dialect
	}
	return e.Category
}

// ApplyVoteDelta adjusts the denormalized counters, clamping at zero.
func (e *Entry) ApplyVoteDelta(up, down int) {
	e.Upvotes = max(0, e.Upvotes+up)
	e.Downvotes = max(0, e.Downvotes+down)
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() *Entry {
	e := &Entry{
		ID:              "e1",
		Term:            "مرحبا",
		Transliteration: "marhaba",
		Translation:     "hello",
		Dialect:         "Levantine",
		Category:        "Greetings",
		Type:            EntryTypeWord,
		Tags:            []string{"greeting"},
		Notes:           "common",
		OwnerID:         "user-a",
		Upvotes:         3,
		Downvotes:       1,
	}
	e.InitTimestamps()
	return e
}

func TestEntryType_Valid(t *testing.T) {
	for _, typ := range EntryTypes {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, EntryType("verb").Valid())
	assert.False(t, EntryType("").Valid())
}

func TestEntry_NeedsEnrichment(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Entry)
		want   bool
	}{
		{"notes only", func(e *Entry) { e.Notes = "changed" }, false},
		{"tags only", func(e *Entry) { e.Tags = []string{"x"} }, false},
		{"term", func(e *Entry) { e.Term = "اهلا" }, true},
		{"translation", func(e *Entry) { e.Translation = "hi" }, true},
		{"dialect", func(e *Entry) { e.Dialect = "Egyptian" }, true},
		{"category", func(e *Entry) { e.Category = "Travel" }, true},
		{"type", func(e *Entry) { e.Type = EntryTypePhrase }, true},
		{"transliteration", func(e *Entry) { e.Transliteration = "marhaban" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := sampleEntry()
			prev.ApplyEnrichment(Enrichment{ExampleUsage: "x"})

			next := prev.Clone()
			tt.mutate(next)
			assert.Equal(t, tt.want, next.NeedsEnrichment(prev))
		})
	}
}

func TestEntry_NeedsEnrichmentWithoutInsights(t *testing.T) {
	prev := sampleEntry()
	next := prev.Clone()
	next.Notes = "only notes"
	assert.True(t, next.NeedsEnrichment(prev))
}

func TestEntry_TouchNeverGoesBackwards(t *testing.T) {
	e := sampleEntry()
	future := time.Now().Add(time.Hour)
	e.UpdatedAt = future

	e.Touch()
	assert.Equal(t, future, e.UpdatedAt)
}

func TestEntry_CloneIsDeep(t *testing.T) {
	e := sampleEntry()
	e.ApplyEnrichment(Enrichment{Synonyms: []string{"ahlan"}, ExampleUsage: "..."})

	c := e.Clone()
	c.Tags[0] = "changed"
	c.AIEnrichment.Synonyms[0] = "changed"

	assert.Equal(t, "greeting", e.Tags[0])
	assert.Equal(t, "ahlan", e.AIEnrichment.Synonyms[0])
}

func TestEntry_ApplyEnrichmentOpensGate(t *testing.T) {
	e := sampleEntry()
	before := e.UpdatedAt

	e.ApplyEnrichment(Enrichment{ExampleUsage: "marhaba ya sadiqi"})

	assert.True(t, e.HasAIInsights)
	require.NotNil(t, e.AIEnrichment)
	assert.NotNil(t, e.AIEnrichment.Synonyms)
	assert.True(t, e.InsightsConsistent())
	assert.False(t, e.UpdatedAt.Before(before))
}

func TestEntry_Fork(t *testing.T) {
	src := sampleEntry()
	src.ApplyEnrichment(Enrichment{ExampleUsage: "example"})
	src.ConceptID = "concept-1"
	src.CreatedAt = time.Now().Add(-24 * time.Hour)

	f := src.Fork("e2", "user-b")

	assert.Equal(t, "e2", f.ID)
	assert.Equal(t, "user-b", f.OwnerID)
	assert.Equal(t, src.Term, f.Term)
	assert.Equal(t, src.Tags, f.Tags)
	assert.True(t, f.HasAIInsights)
	assert.Equal(t, src.AIEnrichment, f.AIEnrichment)
	assert.Zero(t, f.Upvotes)
	assert.Zero(t, f.Downvotes)
	assert.True(t, f.CreatedAt.After(src.CreatedAt))

	f.Tags[0] = "mine"
	assert.Equal(t, "greeting", src.Tags[0])
}

func TestEntry_SameVocabulary(t *testing.T) {
	a := sampleEntry()
	b := a.Clone()
	b.Notes = "different notes"
	assert.True(t, a.SameVocabulary(b))

	b.Dialect = "Gulf"
	assert.False(t, a.SameVocabulary(b))
}

func TestEntry_ApplyVoteDeltaClampsAtZero(t *testing.T) {
	e := &Entry{}
	e.ApplyVoteDelta(-1, -1)
	assert.Zero(t, e.Upvotes)
	assert.Zero(t, e.Downvotes)

	e.ApplyVoteDelta(1, 0)
	assert.Equal(t, 1, e.Upvotes)
}

func TestEntry_CatalogValue(t *testing.T) {
	e := sampleEntry()
	assert.Equal(t, "Levantine", e.CatalogValue(CatalogDialect))
	assert.Equal(t, "Greetings", e.CatalogValue(CatalogCategory))
}

func TestVoteType_Opposite(t *testing.T) {
	assert.Equal(t, VoteDown, VoteUp.Opposite())
	assert.Equal(t, VoteUp, VoteDown.Opposite())
	assert.Equal(t, VoteNone, VoteNone.Opposite())
	assert.False(t, VoteNone.Valid())
}

func TestProfile_CanAddEntry(t *testing.T) {
	free := NewProfile("u")
	assert.True(t, free.CanAddEntry(99, DefaultFreeTierLimit))
	assert.False(t, free.CanAddEntry(100, DefaultFreeTierLimit))

	pro := &Profile{UserID: "u", IsPro: true}
	assert.True(t, pro.CanAddEntry(1000, DefaultFreeTierLimit))

	var none *Profile
	assert.False(t, none.CanAddEntry(100, DefaultFreeTierLimit))
}

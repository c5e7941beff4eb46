package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/store"
)

// makeTestEntry creates a domain.Entry with sensible defaults for testing.
func makeTestEntry(id, owner, dialect string) *domain.Entry {
	now := time.Now()
	return &domain.Entry{
		ID:          id,
		Term:        "مرحبا",
		Translation: "hello",
		Dialect:     dialect,
		Category:    "Greetings",
		Type:        domain.EntryTypeWord,
		Tags:        []string{"greeting"},
		OwnerID:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUpsertAndGetEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("e-1", "user-a", "Levantine")
	e.Transliteration = "marhaba"
	e.ApplyEnrichment(domain.Enrichment{
		Synonyms:     []string{"ahlan"},
		ExampleUsage: "marhaba, kifak?",
	})

	if err := s.UpsertEntry(ctx, "user-a", e); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	got, err := s.GetEntry(ctx, "e-1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}

	if got.Term != e.Term {
		t.Errorf("Term: got %q, want %q", got.Term, e.Term)
	}
	if got.Transliteration != "marhaba" {
		t.Errorf("Transliteration: got %q", got.Transliteration)
	}
	if got.OwnerID != "user-a" {
		t.Errorf("OwnerID: got %q, want user-a", got.OwnerID)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "greeting" {
		t.Errorf("Tags: got %v", got.Tags)
	}
	if !got.HasAIInsights || got.AIEnrichment == nil {
		t.Fatalf("expected insights to round-trip, got %+v", got.AIEnrichment)
	}
	if got.AIEnrichment.ExampleUsage != "marhaba, kifak?" || got.AIEnrichment.Synonyms[0] != "ahlan" {
		t.Errorf("AIEnrichment: got %+v", got.AIEnrichment)
	}

	// Timestamps should round-trip through RFC3339Nano.
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestUpsertEntry_UpdateKeepsCountersAndCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := makeTestEntry("e-1", "user-a", "Levantine")
	if err := s.UpsertEntry(ctx, "user-a", e); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := s.UpsertVote(ctx, "user-b", "e-1", domain.VoteUp); err != nil {
		t.Fatalf("UpsertVote: %v", err)
	}

	created := e.CreatedAt
	e.Notes = "edited"
	e.Upvotes = 99
	e.CreatedAt = created.Add(time.Hour)
	e.Touch()
	if err := s.UpsertEntry(ctx, "user-a", e); err != nil {
		t.Fatalf("UpsertEntry update: %v", err)
	}

	got, err := s.GetEntry(ctx, "e-1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Notes != "edited" {
		t.Errorf("Notes: got %q", got.Notes)
	}
	if got.Upvotes != 1 {
		t.Errorf("Upvotes: got %d, want 1 (derived from votes)", got.Upvotes)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: got %v, want %v", got.CreatedAt, created)
	}
}

func TestUpsertEntry_ForeignOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertEntry(ctx, "user-a", makeTestEntry("e-1", "user-a", "Levantine")); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}

	// Same id, different user.
	err := s.UpsertEntry(ctx, "user-b", makeTestEntry("e-1", "", "Levantine"))
	if !errors.Is(err, store.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// Entry claims another owner.
	err = s.UpsertEntry(ctx, "user-b", makeTestEntry("e-2", "user-a", "Levantine"))
	if !errors.Is(err, store.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestListEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, row := range []struct{ id, owner string }{
		{"e-1", "user-a"}, {"e-2", "user-b"}, {"e-3", "user-a"},
	} {
		e := makeTestEntry(row.id, row.owner, "Levantine")
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.UpsertEntry(ctx, row.owner, e); err != nil {
			t.Fatalf("UpsertEntry %s: %v", row.id, err)
		}
	}

	mine, err := s.ListEntriesByOwner(ctx, "user-a")
	if err != nil {
		t.Fatalf("ListEntriesByOwner: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "e-3" || mine[1].ID != "e-1" {
		t.Errorf("mine: expected [e-3 e-1] newest first, got %v", ids(mine))
	}

	all, err := s.ListAllEntries(ctx)
	if err != nil {
		t.Fatalf("ListAllEntries: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("global: expected 3 entries, got %d", len(all))
	}

	n, err := s.CountEntriesByOwner(ctx, "user-a")
	if err != nil || n != 2 {
		t.Errorf("CountEntriesByOwner: got %d, %v", n, err)
	}
}

func TestDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertEntry(ctx, "user-a", makeTestEntry("e-1", "user-a", "Levantine")); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := s.UpsertVote(ctx, "user-b", "e-1", domain.VoteDown); err != nil {
		t.Fatalf("UpsertVote: %v", err)
	}

	if err := s.DeleteEntry(ctx, "user-b", "e-1"); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("delete by non-owner: expected ErrForbidden, got %v", err)
	}
	if err := s.DeleteEntry(ctx, "user-a", "e-1"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := s.GetEntry(ctx, "e-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Votes cascade with the entry.
	votes, err := s.ListUserVotes(ctx, "user-b")
	if err != nil {
		t.Fatalf("ListUserVotes: %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("expected votes to cascade, got %v", votes)
	}

	// Deleting again is a no-op.
	if err := s.DeleteEntry(ctx, "user-a", "e-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestDeleteEntriesByCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixtures := []*domain.Entry{
		makeTestEntry("e-1", "user-a", "Levantine"),
		makeTestEntry("e-2", "user-a", "Levantine"),
		makeTestEntry("e-3", "user-a", "Egyptian"),
		makeTestEntry("e-4", "user-b", "Levantine"),
	}
	for _, e := range fixtures {
		if err := s.UpsertEntry(ctx, e.OwnerID, e); err != nil {
			t.Fatalf("UpsertEntry %s: %v", e.ID, err)
		}
	}

	n, err := s.DeleteEntriesByCatalog(ctx, "user-a", domain.CatalogDialect, "Levantine")
	if err != nil {
		t.Fatalf("DeleteEntriesByCatalog: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	all, err := s.ListAllEntries(ctx)
	if err != nil {
		t.Fatalf("ListAllEntries: %v", err)
	}
	got := map[string]bool{}
	for _, e := range all {
		got[e.ID] = true
	}
	if !got["e-3"] || !got["e-4"] || len(got) != 2 {
		t.Errorf("expected e-3 and e-4 to survive, got %v", ids(all))
	}

	n, err = s.DeleteEntriesByCatalog(ctx, "user-a", domain.CatalogCategory, "Greetings")
	if err != nil || n != 1 {
		t.Errorf("delete by category: got %d, %v", n, err)
	}
}

func ids(entries []*domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

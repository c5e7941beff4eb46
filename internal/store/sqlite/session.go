package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/store"
)

// Session is a store.Store acting as one user.
type Session struct {
	db     *DB
	userID string
}

var _ store.Store = (*Session)(nil)

// UserID implements store.Store.
func (s *Session) UserID() string { return s.userID }

// GetEntries implements store.Store.
func (s *Session) GetEntries(ctx context.Context, scope store.Scope) ([]*domain.Entry, error) {
	switch scope {
	case store.ScopeMine:
		return s.db.ListEntriesByOwner(ctx, s.userID)
	case store.ScopeGlobal:
		return s.db.ListAllEntries(ctx)
	default:
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown scope %q", scope))
	}
}

// SaveEntry resolves the translation's concept, then upserts the entry.
func (s *Session) SaveEntry(ctx context.Context, e *domain.Entry) error {
	conceptID, err := s.db.resolver.Resolve(ctx, e.Translation)
	if err != nil {
		return fmt.Errorf("resolve concept: %w", err)
	}

	row := e.Clone()
	row.ConceptID = conceptID
	if err := s.db.UpsertEntry(ctx, s.userID, row); err != nil {
		return err
	}
	e.ConceptID = conceptID
	e.OwnerID = row.OwnerID
	return nil
}

// DeleteEntry implements store.Store.
func (s *Session) DeleteEntry(ctx context.Context, id string) error {
	return s.db.DeleteEntry(ctx, s.userID, id)
}

// DeleteEntriesByCatalog implements store.Store.
func (s *Session) DeleteEntriesByCatalog(ctx context.Context, kind domain.CatalogKind, name string) (int, error) {
	if !kind.Valid() {
		return 0, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown catalog %q", kind))
	}
	return s.db.DeleteEntriesByCatalog(ctx, s.userID, kind, name)
}

// GetSubscriptions implements store.Store.
func (s *Session) GetSubscriptions(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	return s.db.ListSubscriptions(ctx, s.userID, kind)
}

// Subscribe implements store.Store.
func (s *Session) Subscribe(ctx context.Context, kind domain.CatalogKind, name string) error {
	if !kind.Valid() {
		return store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown catalog %q", kind))
	}
	return s.db.Subscribe(ctx, s.userID, kind, name)
}

// Unsubscribe implements store.Store.
func (s *Session) Unsubscribe(ctx context.Context, kind domain.CatalogKind, name string) error {
	return s.db.Unsubscribe(ctx, s.userID, kind, name)
}

// GetCatalog implements store.Store.
func (s *Session) GetCatalog(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	return s.db.ListCatalog(ctx, kind)
}

// GetConceptNames implements store.Store.
func (s *Session) GetConceptNames(ctx context.Context) ([]string, error) {
	return s.db.ListConceptNames(ctx)
}

// VoteEntry implements store.Store.
func (s *Session) VoteEntry(ctx context.Context, entryID string, t domain.VoteType) error {
	if !t.Valid() {
		return store.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid vote type %q", t))
	}
	return s.db.UpsertVote(ctx, s.userID, entryID, t)
}

// RemoveVote implements store.Store.
func (s *Session) RemoveVote(ctx context.Context, entryID string) error {
	return s.db.DeleteVote(ctx, s.userID, entryID)
}

// GetUserVotes implements store.Store.
func (s *Session) GetUserVotes(ctx context.Context) (map[string]domain.VoteType, error) {
	return s.db.ListUserVotes(ctx, s.userID)
}

// GetProfile implements store.Store.
func (s *Session) GetProfile(ctx context.Context) (*domain.Profile, error) {
	p, err := s.db.GetProfile(ctx, s.userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewProfile(s.userID), nil
	}
	return p, err
}

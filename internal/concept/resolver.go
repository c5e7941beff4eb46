// Package concept maps free-text translations onto canonical concept ids.
package concept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/arabicbase/arabicbase/internal/domain"
	domainerrors "github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/id"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/normalize"
	"github.com/arabicbase/arabicbase/internal/store"
)

// Repository is the concept table. FindConceptByName returns
// store.ErrNotFound on a miss; CreateConcept returns store.ErrAlreadyExists
// when the name is already taken.
type Repository interface {
	FindConceptByName(ctx context.Context, name string) (*domain.Concept, error)
	CreateConcept(ctx context.Context, c *domain.Concept) error
}

// Concepts are never deleted, so a memoized id stays valid for the life of
// the process. The expiry only bounds memory.
const (
	memoTTL     = 6 * time.Hour
	memoCleanup = 30 * time.Minute
)

// Resolver returns the concept id for a translation, creating the concept
// on first use.
type Resolver struct {
	repo    Repository
	memo    *gocache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewResolver creates a resolver over repo. m may be nil.
func NewResolver(repo Repository, m *metrics.Metrics, log *slog.Logger) *Resolver {
	return &Resolver{
		repo:    repo,
		memo:    gocache.New(memoTTL, memoCleanup),
		metrics: m,
		logger:  logger.Component(log, "concept"),
	}
}

// Resolve returns the concept id for translation, or "" when the translation
// normalizes to nothing.
//
// The protocol is read, insert, then on a uniqueness conflict read once more.
// It tolerates one concurrent creator; if the second read still misses, the
// save fails with CONCEPT_CONFLICT.
func (r *Resolver) Resolve(ctx context.Context, translation string) (string, error) {
	name := normalize.ConceptName(translation)
	if name == "" {
		r.metrics.RecordConceptResolution(metrics.ConceptEmpty)
		return "", nil
	}

	if cached, ok := r.memo.Get(name); ok {
		r.metrics.RecordConceptResolution(metrics.ConceptCached)
		return cached.(string), nil
	}

	existing, err := r.repo.FindConceptByName(ctx, name)
	switch {
	case err == nil:
		r.remember(name, existing.ID)
		r.metrics.RecordConceptResolution(metrics.ConceptFound)
		return existing.ID, nil
	case !errors.Is(err, store.ErrNotFound):
		r.metrics.RecordConceptResolution(metrics.ConceptError)
		return "", fmt.Errorf("find concept %q: %w", name, err)
	}

	c := &domain.Concept{
		ID:        id.MustGenerate("concept"),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	err = r.repo.CreateConcept(ctx, c)
	switch {
	case err == nil:
		r.remember(name, c.ID)
		r.metrics.RecordConceptResolution(metrics.ConceptCreated)
		return c.ID, nil
	case !errors.Is(err, store.ErrAlreadyExists):
		r.metrics.RecordConceptResolution(metrics.ConceptError)
		return "", fmt.Errorf("create concept %q: %w", name, err)
	}

	// Lost the insert race; the winner's row should now be visible.
	winner, err := r.repo.FindConceptByName(ctx, name)
	if err != nil {
		r.metrics.RecordConceptResolution(metrics.ConceptConflict)
		r.logger.Warn("concept vanished after conflicting insert", "concept", name, logger.Err(err))
		return "", domainerrors.ConceptConflictf("concept %q could not be resolved", name).WithCause(err)
	}
	r.remember(name, winner.ID)
	r.metrics.RecordConceptResolution(metrics.ConceptRaced)
	r.logger.Debug("concept created concurrently, reusing winner", "concept", name, "concept_id", winner.ID)
	return winner.ID, nil
}

// Forget drops every memoized id.
func (r *Resolver) Forget() {
	r.memo.Flush()
}

func (r *Resolver) remember(name, conceptID string) {
	r.memo.Set(name, conceptID, gocache.DefaultExpiration)
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/store"
)

// entryColumns is the ordered list of columns selected in entry queries.
// Must match the scan order in scanEntry.
const entryColumns = `id, term, transliteration, translation, dialect, category, type,
	tags, notes, ai_enrichment, has_ai_insights, owner_id, concept_id,
	upvotes, downvotes, created_at, updated_at`

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.Entry, error) {
	var e domain.Entry

	var (
		entryType     string
		tagsJSON      string
		enrichment    sql.NullString
		hasAIInsights int
		ownerID       sql.NullString
		conceptID     sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := scanner.Scan(
		&e.ID,
		&e.Term,
		&e.Transliteration,
		&e.Translation,
		&e.Dialect,
		&e.Category,
		&entryType,
		&tagsJSON,
		&e.Notes,
		&enrichment,
		&hasAIInsights,
		&ownerID,
		&conceptID,
		&e.Upvotes,
		&e.Downvotes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = domain.EntryType(entryType)
	e.HasAIInsights = hasAIInsights != 0
	e.OwnerID = ownerID.String
	e.ConceptID = conceptID.String

	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for entry %s: %w", e.ID, err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if enrichment.Valid && enrichment.String != "" {
		e.AIEnrichment = &domain.Enrichment{}
		if err := json.Unmarshal([]byte(enrichment.String), e.AIEnrichment); err != nil {
			return nil, fmt.Errorf("decode enrichment for entry %s: %w", e.ID, err)
		}
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

func (s *DB) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListEntriesByOwner returns a user's entries, newest first.
func (s *DB) ListEntriesByOwner(ctx context.Context, ownerID string) (_ []*domain.Entry, err error) {
	defer s.observe("list_entries_mine", time.Now(), &err)
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE owner_id = ? ORDER BY created_at DESC, id ASC`, ownerID)
}

// ListAllEntries returns the community catalog, newest first.
func (s *DB) ListAllEntries(ctx context.Context) (_ []*domain.Entry, err error) {
	defer s.observe("list_entries_global", time.Now(), &err)
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY created_at DESC, id ASC`)
}

// GetEntry retrieves an entry by id.
// Returns store.ErrNotFound if it does not exist.
func (s *DB) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CountEntriesByOwner returns how many entries a user owns.
func (s *DB) CountEntriesByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

// UpsertEntry inserts or updates an entry owned by ownerID. The vote
// counters, creation time and owner of an existing row are never overwritten:
// counters are derived from entry_votes and ownership does not transfer.
// Returns store.ErrForbidden when the row belongs to someone else.
func (s *DB) UpsertEntry(ctx context.Context, ownerID string, e *domain.Entry) (err error) {
	defer s.observe("save_entry", time.Now(), &err)

	if e.OwnerID != "" && e.OwnerID != ownerID {
		return store.ErrForbidden.WithMessage("entry belongs to another user")
	}

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var enrichment sql.NullString
	if e.AIEnrichment != nil {
		b, err := json.Marshal(e.AIEnrichment)
		if err != nil {
			return fmt.Errorf("encode enrichment: %w", err)
		}
		enrichment = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	var existingOwner sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT owner_id FROM entries WHERE id = ?`, e.ID).Scan(&existingOwner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case existingOwner.String != ownerID:
		return store.ErrForbidden.WithMessage("entry belongs to another user")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (
			id, term, transliteration, translation, dialect, category, type,
			tags, notes, ai_enrichment, has_ai_insights, owner_id, concept_id,
			upvotes, downvotes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			term = excluded.term,
			transliteration = excluded.transliteration,
			translation = excluded.translation,
			dialect = excluded.dialect,
			category = excluded.category,
			type = excluded.type,
			tags = excluded.tags,
			notes = excluded.notes,
			ai_enrichment = excluded.ai_enrichment,
			has_ai_insights = excluded.has_ai_insights,
			concept_id = excluded.concept_id,
			updated_at = excluded.updated_at`,
		e.ID,
		e.Term,
		e.Transliteration,
		e.Translation,
		e.Dialect,
		e.Category,
		string(e.Type),
		string(tagsJSON),
		e.Notes,
		enrichment,
		boolToInt(e.HasAIInsights),
		ownerID,
		nullString(e.ConceptID),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.OwnerID = ownerID
	return nil
}

// DeleteEntry removes an entry owned by ownerID. Deleting an id that does
// not exist is not an error; deleting someone else's entry is.
func (s *DB) DeleteEntry(ctx context.Context, ownerID, id string) (err error) {
	defer s.observe("delete_entry", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var owner sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT owner_id FROM entries WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return store.ErrForbidden.WithMessage("entry belongs to another user")
}

// DeleteEntriesByCatalog removes a user's entries filed under the named
// dialect or category.
func (s *DB) DeleteEntriesByCatalog(ctx context.Context, ownerID string, kind domain.CatalogKind, name string) (_ int, err error) {
	defer s.observe("delete_entries_by_"+string(kind), time.Now(), &err)

	column := "category"
	if kind == domain.CatalogDialect {
		column = "dialect"
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE owner_id = ? AND `+column+` = ?`, ownerID, name)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

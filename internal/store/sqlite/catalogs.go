package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/id"
	"github.com/arabicbase/arabicbase/internal/store"
)

// EnsureCatalogItem returns the global row for (kind, name), creating it if
// needed. A concurrent creator is tolerated by re-reading after a conflict.
func (s *DB) EnsureCatalogItem(ctx context.Context, kind domain.CatalogKind, name string) (*domain.CatalogItem, error) {
	item, err := s.getCatalogItem(ctx, kind, name)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	itemID, err := id.Generate(string(kind))
	if err != nil {
		return nil, fmt.Errorf("generate %s id: %w", kind, err)
	}
	item = &domain.CatalogItem{ID: itemID, Kind: kind, Name: name, CreatedAt: time.Now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_items (id, kind, name, created_at) VALUES (?, ?, ?, ?)`,
		item.ID, string(item.Kind), item.Name, formatTime(item.CreatedAt))
	if err == nil {
		return item, nil
	}
	if err = mapConstraintError(err); !errors.Is(err, store.ErrAlreadyExists) {
		return nil, err
	}
	return s.getCatalogItem(ctx, kind, name)
}

func (s *DB) getCatalogItem(ctx context.Context, kind domain.CatalogKind, name string) (*domain.CatalogItem, error) {
	var (
		item      domain.CatalogItem
		kindStr   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, created_at FROM catalog_items WHERE kind = ? AND name = ?`,
		string(kind), name,
	).Scan(&item.ID, &kindStr, &item.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Kind = domain.CatalogKind(kindStr)
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListCatalog returns every global name of a kind, alphabetically.
func (s *DB) ListCatalog(ctx context.Context, kind domain.CatalogKind) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT name FROM catalog_items WHERE kind = ? ORDER BY name ASC`, string(kind))
}

// ListSubscriptions returns the names a user has added, alphabetically.
func (s *DB) ListSubscriptions(ctx context.Context, userID string, kind domain.CatalogKind) ([]string, error) {
	return s.queryStrings(ctx, `
		SELECT c.name FROM catalog_subscriptions s
		JOIN catalog_items c ON c.id = s.item_id
		WHERE s.user_id = ? AND c.kind = ?
		ORDER BY c.name ASC`, userID, string(kind))
}

// Subscribe links a user to the global (kind, name) row, creating the row
// if needed. An existing link is left as is.
func (s *DB) Subscribe(ctx context.Context, userID string, kind domain.CatalogKind, name string) (err error) {
	defer s.observe("add_"+string(kind), time.Now(), &err)

	item, err := s.EnsureCatalogItem(ctx, kind, name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_subscriptions (user_id, item_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, item_id) DO NOTHING`,
		userID, item.ID, formatTime(time.Now()))
	return mapConstraintError(err)
}

// Unsubscribe removes a user's link to (kind, name). The global row stays.
// Unlinking a name that was never linked is a no-op.
func (s *DB) Unsubscribe(ctx context.Context, userID string, kind domain.CatalogKind, name string) (err error) {
	defer s.observe("remove_"+string(kind), time.Now(), &err)

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM catalog_subscriptions
		WHERE user_id = ?
		  AND item_id IN (SELECT id FROM catalog_items WHERE kind = ? AND name = ?)`,
		userID, string(kind), name)
	return err
}

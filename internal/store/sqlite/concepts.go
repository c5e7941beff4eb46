package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/store"
)

// FindConceptByName retrieves a concept by its normalized name.
// Returns store.ErrNotFound if it does not exist.
func (s *DB) FindConceptByName(ctx context.Context, name string) (*domain.Concept, error) {
	var (
		c         domain.Concept
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM concepts WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConcept inserts a new concept.
// Returns store.ErrAlreadyExists on duplicate name.
func (s *DB) CreateConcept(ctx context.Context, c *domain.Concept) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO concepts (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, formatTime(c.CreatedAt))
	return mapConstraintError(err)
}

// ListConceptNames returns every concept name in alphabetical order.
func (s *DB) ListConceptNames(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT name FROM concepts ORDER BY name ASC`)
}

func (s *DB) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

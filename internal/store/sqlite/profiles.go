package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/store"
)

// GetProfile retrieves a user's profile.
// Returns store.ErrNotFound if none was stored.
func (s *DB) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p         domain.Profile
		isPro     int
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, is_pro, created_at, updated_at FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &isPro, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.IsPro = isPro != 0
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile inserts or updates a profile.
func (s *DB) SaveProfile(ctx context.Context, p *domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, is_pro, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			is_pro = excluded.is_pro,
			updated_at = excluded.updated_at`,
		p.UserID, boolToInt(p.IsPro), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

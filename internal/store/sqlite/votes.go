package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
)

// recountVotes rewrites an entry's counters from entry_votes. The counters
// on the entries row are only ever written here.
const recountVotes = `
	UPDATE entries SET
		upvotes = (SELECT COUNT(*) FROM entry_votes WHERE entry_id = ?1 AND type = 'up'),
		downvotes = (SELECT COUNT(*) FROM entry_votes WHERE entry_id = ?1 AND type = 'down')
	WHERE id = ?1`

// UpsertVote sets a user's vote on an entry, replacing any previous vote.
// Returns store.ErrNotFound if the entry does not exist.
func (s *DB) UpsertVote(ctx context.Context, userID, entryID string, t domain.VoteType) (err error) {
	defer s.observe("vote_entry", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	now := formatTime(time.Now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entry_votes (user_id, entry_id, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, entry_id) DO UPDATE SET
			type = excluded.type,
			updated_at = excluded.updated_at`,
		userID, entryID, string(t), now, now)
	if err != nil {
		return mapConstraintError(err)
	}
	if _, err = tx.ExecContext(ctx, recountVotes, entryID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteVote removes a user's vote on an entry. Removing a missing vote is a no-op.
func (s *DB) DeleteVote(ctx context.Context, userID, entryID string) (err error) {
	defer s.observe("remove_vote", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM entry_votes WHERE user_id = ? AND entry_id = ?`, userID, entryID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, recountVotes, entryID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListUserVotes returns every vote a user holds, keyed by entry id.
func (s *DB) ListUserVotes(ctx context.Context, userID string) (map[string]domain.VoteType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, type FROM entry_votes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := map[string]domain.VoteType{}
	for rows.Next() {
		var entryID, t string
		if err := rows.Scan(&entryID, &t); err != nil {
			return nil, err
		}
		votes[entryID] = domain.VoteType(t)
	}
	return votes, rows.Err()
}

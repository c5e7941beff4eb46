// Package snapshot keeps a local copy of a user's cached library in Badger
// so the cache can show entries before the first remote load completes.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
)

// ErrNotFound is returned by Load when no snapshot exists for the user.
var ErrNotFound = errors.New("snapshot not found")

const keyPrefix = "snapshot:"

// Snapshot is the persisted user slice of the cache.
type Snapshot struct {
	UserID     string                     `json:"user_id"`
	SavedAt    time.Time                  `json:"saved_at"`
	Entries    []*domain.Entry            `json:"entries"`
	Dialects   []string                   `json:"dialects,omitempty"`
	Categories []string                   `json:"categories,omitempty"`
	Votes      map[string]domain.VoteType `json:"votes,omitempty"`
}

// Store persists snapshots in a Badger database.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens or creates the snapshot database at path. An empty path keeps
// snapshots in memory.
func Open(path string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	s := &Store{db: db, logger: logger.Component(log, "snapshot")}
	s.logger.Info("snapshot store opened", slog.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(userID string) []byte {
	return []byte(keyPrefix + userID)
}

// Save replaces the snapshot for snap.UserID.
func (s *Store) Save(snap *Snapshot) error {
	if snap.UserID == "" {
		return errors.New("snapshot has no user")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(snap.UserID), data)
	}); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Debug("snapshot saved",
		slog.String("user_id", snap.UserID),
		slog.Int("entries", len(snap.Entries)))
	return nil
}

// Load returns the stored snapshot for userID.
func (s *Store) Load(userID string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot for userID. Deleting a missing snapshot is
// not an error.
func (s *Store) Delete(userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(userID))
	})
}

// Users lists the users that have a snapshot.
func (s *Store) Users() ([]string, error) {
	var users []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			users = append(users, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return users, err
}

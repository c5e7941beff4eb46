// Package sqlite is the row store behind the persistence contract. DB holds
// every user's rows; Session binds it to one user and implements store.Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arabicbase/arabicbase/internal/concept"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB provides SQLite-backed persistence for every user.
type DB struct {
	db       *sql.DB
	resolver *concept.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Open creates a new SQLite store at the given path and applies the schema.
func Open(path string, m *metrics.Metrics, log *slog.Logger) (*DB, error) {
	// Pragmas go in the DSN so every pooled connection gets them, not just
	// the first one.
	dsn := path + "?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &DB{
		db:      db,
		metrics: m,
		logger:  logger.Component(log, "sqlite"),
	}
	s.resolver = concept.NewResolver(s, m, log)
	return s, nil
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Session returns a store.Store acting as userID.
func (s *DB) Session(userID string) *Session {
	return &Session{db: s, userID: userID}
}

// formatTime formats a time.Time as RFC3339Nano in UTC for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullString returns a NULL for the empty string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mapConstraintError converts SQLite constraint failures to store sentinels.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return store.ErrAlreadyExists.WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.ErrNotFound.WithCause(err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return store.ErrInvalidInput.WithCause(err)
	}
	return err
}

// observe records one store operation. Use as: defer s.observe("op", time.Now(), &err).
func (s *DB) observe(op string, start time.Time, err *error) {
	s.metrics.RecordPersistence(op, *err, time.Since(start))
}

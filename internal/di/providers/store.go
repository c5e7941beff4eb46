package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/store"
	"github.com/arabicbase/arabicbase/internal/store/remote"
	"github.com/arabicbase/arabicbase/internal/store/sqlite"
)

// DBHandle wraps the SQLite database with shutdown capability.
type DBHandle struct {
	*sqlite.DB
}

// Shutdown implements do.Shutdownable.
func (h *DBHandle) Shutdown() error {
	return h.Close()
}

// ProvideDB opens the SQLite database.
func ProvideDB(i do.Injector) (*DBHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	if cfg.Store.SQLitePath == "" {
		return nil, fmt.Errorf("store: sqlite_path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlite.Open(cfg.Store.SQLitePath, m, log)
	if err != nil {
		return nil, err
	}

	log.Info("database initialized", slog.String("path", cfg.Store.SQLitePath))
	return &DBHandle{DB: db}, nil
}

// ProvideStore provides the persistence session the cache talks to: the
// remote API when a URL is configured, otherwise a local SQLite session for
// the configured user.
func ProvideStore(i do.Injector) (store.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	if cfg.Store.RemoteURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		client, err := remote.Dial(ctx, remote.Config{
			BaseURL: cfg.Store.RemoteURL,
			Token:   cfg.Store.Token,
		}, remote.WithLogger(log), remote.WithMetrics(m))
		if err != nil {
			return nil, err
		}
		log.Info("using remote store",
			slog.String("url", cfg.Store.RemoteURL),
			slog.String("user_id", client.UserID()))
		return client, nil
	}

	db := do.MustInvoke[*DBHandle](i)
	log.Debug("using local store", slog.String("user_id", cfg.Store.UserID))
	return db.Session(cfg.Store.UserID), nil
}

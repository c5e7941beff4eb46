package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/search"
	"github.com/arabicbase/arabicbase/internal/snapshot"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// SearchIndex is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve catalog index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if !cfg.Search.Enabled {
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Search.Path,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Debug("search index initialized", slog.Uint64("documents", docCount))

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// SnapshotHandle wraps the snapshot store with shutdown capability.
// Store is nil when snapshots are disabled.
type SnapshotHandle struct {
	*snapshot.Store
}

// Shutdown implements do.Shutdownable.
func (h *SnapshotHandle) Shutdown() error {
	if h.Store == nil {
		return nil
	}
	return h.Close()
}

// ProvideSnapshots provides the Badger snapshot store.
func ProvideSnapshots(i do.Injector) (*SnapshotHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if !cfg.Snapshot.Enabled {
		return &SnapshotHandle{}, nil
	}

	s, err := snapshot.Open(cfg.Snapshot.Path, log)
	if err != nil {
		return nil, err
	}
	return &SnapshotHandle{Store: s}, nil
}

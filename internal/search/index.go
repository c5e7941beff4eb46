package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
)

// SearchIndex wraps a Bleve index of global entries.
//
// All public methods are safe for concurrent use.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	ids    map[string]struct{}
}

// Options configures the search index.
type Options struct {
	DataPath string // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger
}

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup triggers a rebuild.
const mappingVersion = "1"

const batchSize = 500

// NewSearchIndex creates or opens a search index.
// A corrupted index or one built with an older mapping is removed and recreated.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	log := logger.Component(opts.Logger, "search")

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		log.Debug("created in-memory search index")
		return &SearchIndex{index: index, logger: log, ids: make(map[string]struct{})}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "entries.bleve")
	versionPath := filepath.Join(opts.DataPath, "entries.version")

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(existingVersion) != mappingVersion {
			log.Info("search index mapping version changed, will rebuild",
				slog.String("new_version", mappingVersion))
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(indexPath)
		if err != nil {
			log.Warn("failed to open existing index, will recreate",
				slog.String("path", indexPath),
				logger.Err(err))
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(indexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); writeErr != nil {
			log.Warn("failed to write search version file", logger.Err(writeErr))
		}
		log.Info("created new search index", slog.String("path", indexPath))
	} else {
		log.Info("opened existing search index", slog.String("path", indexPath))
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: log,
		ids:    make(map[string]struct{}),
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Replace makes the index hold exactly entries. Documents for entries no
// longer present are deleted, including any left over from a previous run.
func (s *SearchIndex) Replace(entries []*domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keep[e.ID] = struct{}{}
	}

	stale, err := s.storedIDs()
	if err != nil {
		return err
	}
	for id := range s.ids {
		stale = append(stale, id)
	}

	batch := s.index.NewBatch()
	for _, id := range stale {
		if _, ok := keep[id]; !ok {
			batch.Delete(id)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("delete stale documents: %w", err)
	}

	for i := 0; i < len(entries); i += batchSize {
		end := min(i+batchSize, len(entries))
		batch := s.index.NewBatch()
		for _, e := range entries[i:end] {
			if err := batch.Index(e.ID, NewEntryDocument(e).ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", e.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.ids = keep
	s.logger.Debug("search index replaced", slog.Int("documents", len(entries)))
	return nil
}

// storedIDs lists document ids already in the index. Caller holds mu.
func (s *SearchIndex) storedIDs() ([]string, error) {
	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Upsert indexes a single entry.
func (s *SearchIndex) Upsert(e *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Index(e.ID, NewEntryDocument(e).ToMap()); err != nil {
		return err
	}
	s.ids[e.ID] = struct{}{}
	return nil
}

// Delete removes entries from the index.
func (s *SearchIndex) Delete(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
		delete(s.ids, id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed entries.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

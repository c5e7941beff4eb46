package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/cache"
	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/metrics"
	"github.com/arabicbase/arabicbase/internal/store"
	"github.com/arabicbase/arabicbase/internal/validation"
)

// CacheHandle wraps the entry cache with shutdown capability.
type CacheHandle struct {
	*cache.Cache
	pipeline *PipelineHandle
}

// Shutdown implements do.Shutdownable. The pipeline stops first so no
// result lands in a closed cache.
func (h *CacheHandle) Shutdown() error {
	h.pipeline.Close()
	return h.Close()
}

// ProvideCache provides the entry cache wired to the pipeline, broker,
// search index and snapshot store, and starts both the cache and the
// pipeline.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	st, err := do.Invoke[store.Store](i)
	if err != nil {
		return nil, err
	}
	pipeline := do.MustInvoke[*PipelineHandle](i)
	broker := do.MustInvoke[*BrokerHandle](i)
	index, err := do.Invoke[*SearchIndexHandle](i)
	if err != nil {
		return nil, err
	}
	snaps, err := do.Invoke[*SnapshotHandle](i)
	if err != nil {
		return nil, err
	}

	opts := cache.Options{
		Store:         st,
		Enricher:      pipeline.Pipeline,
		Publisher:     broker.Broker,
		Validator:     validation.New(),
		Metrics:       m,
		Logger:        log,
		FreeTierLimit: cfg.Quota.FreeTierLimit,
	}
	// Leave the interfaces nil rather than holding a typed nil.
	if index.SearchIndex != nil {
		opts.Index = index.SearchIndex
	}
	if snaps.Store != nil {
		opts.Snapshots = snaps.Store
	}

	c := cache.New(opts)
	pipeline.SetSink(c)

	ctx := context.Background()
	c.Start(ctx)
	pipeline.Start(ctx)

	return &CacheHandle{Cache: c, pipeline: pipeline}, nil
}

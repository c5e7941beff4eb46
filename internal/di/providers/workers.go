package providers

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/ai"
	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/enrichment"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

// BrokerHandle wraps the event broker with its context for lifecycle management.
type BrokerHandle struct {
	*events.Broker
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BrokerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Broker.Shutdown(ctx)
	h.cancel()
	return err
}

// ProvideBroker provides the change event broker, already running.
func ProvideBroker(i do.Injector) (*BrokerHandle, error) {
	log := do.MustInvoke[*slog.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	broker := events.NewBroker(m, log)

	ctx, cancel := context.WithCancel(context.Background())
	go broker.Start(ctx)

	return &BrokerHandle{Broker: broker, cancel: cancel}, nil
}

// ProvideAIClient provides the insight generator.
func ProvideAIClient(i do.Injector) (*ai.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	e := cfg.Enrichment
	client := ai.New(ai.Config{
		APIKey:      e.APIKey,
		BaseURL:     e.BaseURL,
		Model:       e.Model,
		Temperature: e.Temperature,
		MaxTokens:   e.MaxTokens,
		Timeout:     e.Timeout,
	}, ai.WithLogger(log))

	if e.APIKey == "" {
		log.Warn("enrichment api key not set; entries will not receive insights")
	}
	return client, nil
}

// PipelineHandle wraps the enrichment pipeline with shutdown capability.
type PipelineHandle struct {
	*enrichment.Pipeline
}

// Shutdown implements do.Shutdownable.
func (h *PipelineHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideEnrichmentPipeline provides the worker pool. Its sink is attached
// by ProvideCache; it is started there too.
func ProvideEnrichmentPipeline(i do.Injector) (*PipelineHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	client := do.MustInvoke[*ai.Client](i)

	e := cfg.Enrichment
	p := enrichment.New(client, nil, enrichment.Config{
		Workers:           e.Workers,
		QueueSize:         e.QueueSize,
		RequestsPerSecond: e.RequestsPerSecond,
		Burst:             e.Burst,
		JobTimeout:        e.Timeout,
	}, m, log)

	return &PipelineHandle{Pipeline: p}, nil
}

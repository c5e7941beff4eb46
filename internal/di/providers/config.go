// Package providers contains dependency injection providers for the
// ArabicBase engine and API server.
package providers

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/logger"
	"github.com/arabicbase/arabicbase/internal/metrics"
)

// ProvideLogLevel provides the runtime-adjustable log level.
func ProvideLogLevel(i do.Injector) (*slog.LevelVar, error) {
	cfg := do.MustInvoke[*config.Config](i)

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	return level, nil
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	level := do.MustInvoke[*slog.LevelVar](i)

	log := logger.New(logger.Config{
		Level:       level,
		Format:      strings.ToLower(cfg.Log.Format),
		AddSource:   cfg.App.Environment == "development" && level.Level() == slog.LevelDebug,
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.Log.Level),
		slog.String("data_dir", cfg.App.DataDir))

	return log, nil
}

// ProvideMetrics provides the prometheus collectors on a private registry.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(registry)
}

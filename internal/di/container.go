// Package di wires the ArabicBase engine with samber/do. Providers are lazy:
// a command only builds the part of the graph it invokes.
package di

import (
	"github.com/samber/do/v2"

	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogLevel)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Persistence
	do.Provide(injector, providers.ProvideDB)
	do.Provide(injector, providers.ProvideStore)

	// Auth
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Local indexes
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSnapshots)

	// Workers
	do.Provide(injector, providers.ProvideBroker)
	do.Provide(injector, providers.ProvideAIClient)
	do.Provide(injector, providers.ProvideEnrichmentPipeline)

	// Engine
	do.Provide(injector, providers.ProvideCache)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

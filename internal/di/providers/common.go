package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// dialTimeout bounds the identity check against a remote store.
	dialTimeout = 15 * time.Second
)

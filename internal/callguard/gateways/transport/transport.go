// Package transport runs the network listener that carries the callguard API.
// It owns socket and server lifecycle; request semantics live in the handler.
package transport

import (
	"context"
	"net/http"
)

// ServerTransport is implemented by every listener the daemon can run.
type ServerTransport interface {
	// Start binds the listener and serves handler until Stop or ctx cancellation.
	Start(ctx context.Context, handler http.Handler) error

	// Stop drains in-flight requests until ctx is done, then closes the listener.
	Stop(ctx context.Context) error

	// Address returns the bound address, or the configured one before Start.
	Address() string
}

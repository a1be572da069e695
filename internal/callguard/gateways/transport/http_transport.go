package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haukened/rr-callguard/internal/callguard/common/log"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// HTTPTransport implements ServerTransport over plain HTTP.
type HTTPTransport struct {
	addr   string
	logger log.Logger

	mu       sync.RWMutex
	running  bool
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// NewHTTPTransport creates a transport that will listen on addr.
func NewHTTPTransport(addr string, logger log.Logger) *HTTPTransport {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &HTTPTransport{addr: addr, logger: logger}
}

// Start binds addr and serves handler on a background goroutine. Cancelling
// ctx closes the listener immediately; use Stop for a graceful drain.
func (t *HTTPTransport) Start(ctx context.Context, handler http.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", t.addr, err)
	}

	t.listener = ln
	t.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	t.done = make(chan struct{})
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "transport started")

	go t.serve(t.server, ln, t.done)
	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			_ = t.close()
		case <-done:
		}
	}(t.done)
	return nil
}

func (t *HTTPTransport) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.logger.Error(map[string]any{"error": err}, "HTTP server stopped unexpectedly")
	}
}

// Stop gracefully shuts the server down. Stopping a stopped transport is a no-op.
func (t *HTTPTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	srv, done := t.server, t.done
	t.mu.Unlock()

	err := srv.Shutdown(ctx)
	if err != nil {
		t.logger.Warn(map[string]any{"error": err}, "graceful shutdown incomplete, closing")
		_ = srv.Close()
	}
	<-done

	t.logger.Info(map[string]any{
		"transport": "http",
		"address":   t.Address(),
	}, "transport stopped")
	return err
}

// close tears the server down without draining.
func (t *HTTPTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	t.running = false
	return t.server.Close()
}

// Address returns the bound address once started.
func (t *HTTPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

var _ ServerTransport = (*HTTPTransport)(nil)

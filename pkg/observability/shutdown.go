package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ShutdownFunc releases a resource during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager coordinates graceful shutdown. HTTP servers are drained
// first so in-flight requests finish against live backends; the registered
// resource funcs then run in parallel under a shared deadline.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers []namedServer
	funcs   []namedFunc
}

type namedServer struct {
	name   string
	server *http.Server
}

type namedFunc struct {
	name string
	fn   ShutdownFunc
}

// NewShutdownManager creates a shutdown manager with the given drain
// deadline, 30s when zero
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterServer adds an HTTP server to drain during shutdown
func (sm *ShutdownManager) RegisterServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, namedServer{name: name, server: server})
}

// RegisterShutdownFunc adds a resource to release after the servers drain
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedFunc{name: name, fn: fn})
}

// Wait blocks until ctx is cancelled, then runs the shutdown sequence.
// Meant to run on its own goroutine alongside the server loops.
func (sm *ShutdownManager) Wait(ctx context.Context) error {
	<-ctx.Done()
	return sm.Shutdown()
}

// Shutdown drains every registered server and releases every registered
// resource, returning the first error encountered
func (sm *ShutdownManager) Shutdown() error {
	sm.logger.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.mu.Lock()
	servers := sm.servers
	funcs := sm.funcs
	sm.mu.Unlock()

	var firstErr error

	for _, s := range servers {
		sm.logger.Infof("Draining %s server", s.name)
		if err := s.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Errorf("%s server shutdown failed", s.name)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s server shutdown: %w", s.name, err)
			}
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))

	for _, f := range funcs {
		wg.Add(1)
		go func(f namedFunc) {
			defer wg.Done()
			if err := f.fn(ctx); err != nil {
				sm.logger.WithError(err).Errorf("Shutdown of %s failed", f.name)
				errChan <- fmt.Errorf("%s shutdown: %w", f.name, err)
			}
		}(f)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Shutdown deadline reached before all resources released")
		if firstErr == nil {
			firstErr = fmt.Errorf("shutdown timed out after %s", sm.timeout)
		}
		return firstErr
	}

	close(errChan)
	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		sm.logger.Info("Graceful shutdown complete")
	}
	return firstErr
}

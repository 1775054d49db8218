// Package lifecycle sequences startup-registered components through a
// graceful shutdown: last registered, first stopped.
package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc stops one component. It must respect the context deadline.
type ShutdownFunc func(ctx context.Context) error

type shutdownHook struct {
	component string
	stop      ShutdownFunc
}

// Manager collects shutdown hooks and runs them in reverse registration
// order, so dependents stop before the things they depend on.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []shutdownHook
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{timeout: timeout, logger: logger}
}

// Register adds a named shutdown hook.
func (m *Manager) Register(component string, stop ShutdownFunc) {
	if stop == nil {
		return
	}
	m.mu.Lock()
	m.hooks = append(m.hooks, shutdownHook{component: component, stop: stop})
	m.mu.Unlock()
}

// Shutdown stops every registered component, newest first, within the
// manager's timeout. All failures are collected; one component failing to
// stop does not prevent the rest from being attempted.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	hooks := make([]shutdownHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	var failures error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		started := time.Now()
		if err := h.stop(ctx); err != nil {
			m.logger.Error("component shutdown failed",
				zap.String("component", h.component),
				zap.Error(err))
			failures = errors.Join(failures, err)
			continue
		}
		m.logger.Info("component stopped",
			zap.String("component", h.component),
			zap.Duration("took", time.Since(started)))
	}
	return failures
}

// Listen arms a SIGINT/SIGTERM handler that fires the provided cancel
// function once.
func (m *Manager) Listen(cancel context.CancelFunc) {
	if cancel == nil {
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		sig := <-sigCh
		m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()
}

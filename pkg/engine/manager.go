// Package engine holds the process-wide codec engine. It is loaded lazily
// once; a failed load is forgotten so a later call retries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/user/vinacrop/pkg/ports"
)

// ErrEngineInit is returned to every caller waiting on a failed load.
var ErrEngineInit = errors.New("codec engine initialization failed")

// attempt is one in-flight or finished load.
type attempt struct {
	done   chan struct{}
	engine ports.CodecEngine
	err    error
}

// Manager implements ports.EngineProvider over an EngineLoader.
//
// States: not started (current == nil), in flight (current.done open),
// ready (current.done closed with an engine). A failed attempt resets
// current to nil before its waiters are released.
type Manager struct {
	loader ports.EngineLoader
	logger ports.Logger

	mu      sync.Mutex
	current *attempt
	closed  bool
}

// NewManager creates a manager that loads through loader.
func NewManager(loader ports.EngineLoader, logger ports.Logger) *Manager {
	return &Manager{
		loader: loader,
		logger: logger.WithComponent("engine"),
	}
}

// Get returns the engine, loading it if no load is ready or in flight.
// Concurrent callers share one load. The load itself is not cancelled with
// ctx; ctx only bounds how long this caller waits.
func (m *Manager) Get(ctx context.Context) (ports.CodecEngine, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: manager closed", ErrEngineInit)
	}
	a := m.current
	if a == nil {
		a = &attempt{done: make(chan struct{})}
		m.current = a
		go m.load(context.WithoutCancel(ctx), a)
	}
	m.mu.Unlock()

	select {
	case <-a.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if a.err != nil {
		return nil, a.err
	}
	return a.engine, nil
}

// Preload starts loading in the background and returns immediately.
func (m *Manager) Preload(ctx context.Context) {
	go func() {
		if _, err := m.Get(ctx); err != nil {
			m.logger.Error("Codec engine failed to load: %v", err)
		}
	}()
}

// Loaded reports whether the engine is ready.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	a := m.current
	m.mu.Unlock()

	if a == nil {
		return false
	}
	select {
	case <-a.done:
		return a.err == nil
	default:
		return false
	}
}

// Close closes a ready engine. Later Get calls fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	a := m.current
	m.closed = true
	m.mu.Unlock()

	if a == nil {
		return nil
	}
	<-a.done
	if a.engine == nil {
		return nil
	}
	return a.engine.Close()
}

func (m *Manager) load(ctx context.Context, a *attempt) {
	m.logger.Debug("Loading codec engine")

	eng, err := m.loader.Load(ctx)
	if err != nil {
		a.err = fmt.Errorf("%w: %w", ErrEngineInit, err)

		m.mu.Lock()
		if m.current == a {
			m.current = nil
		}
		m.mu.Unlock()

		close(a.done)
		return
	}

	a.engine = eng
	close(a.done)
}

// Ensure Manager implements ports.EngineProvider
var _ ports.EngineProvider = (*Manager)(nil)

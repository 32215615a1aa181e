package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/user/vinacrop/pkg/ports"
)

// CodecEngine is an in-memory mock implementation of ports.CodecEngine.
// Without ExecFunc, Exec reports progress 0.5 and 1 and writes OutputName.
type CodecEngine struct {
	mu    sync.Mutex
	files map[string][]byte

	ExecFunc   func(ctx context.Context, args []string, onProgress ports.ProgressFunc) error
	OutputName string
	OutputData []byte

	ExecArgs [][]string
	Deleted  []string
	Closed   bool
}

// NewCodecEngine creates an empty mock engine.
func NewCodecEngine() *CodecEngine {
	return &CodecEngine{
		files:      make(map[string][]byte),
		OutputName: "output.mp4",
		OutputData: []byte("mp4"),
	}
}

func (m *CodecEngine) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *CodecEngine) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	return data, nil
}

func (m *CodecEngine) DeleteFile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, name)
	delete(m.files, name)
	return nil
}

func (m *CodecEngine) Exec(ctx context.Context, args []string, onProgress ports.ProgressFunc) error {
	m.mu.Lock()
	m.ExecArgs = append(m.ExecArgs, append([]string(nil), args...))
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, args, onProgress)
	}
	if onProgress != nil {
		onProgress(0.5)
		onProgress(1)
	}
	return m.WriteFile(m.OutputName, m.OutputData)
}

func (m *CodecEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Has reports whether name is present in the working storage.
func (m *CodecEngine) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

var _ ports.CodecEngine = (*CodecEngine)(nil)

// EngineLoader is a mock implementation of ports.EngineLoader.
type EngineLoader struct {
	LoadFunc func(ctx context.Context) (ports.CodecEngine, error)
	calls    atomic.Int32
}

func (m *EngineLoader) Load(ctx context.Context) (ports.CodecEngine, error) {
	m.calls.Add(1)
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return NewCodecEngine(), nil
}

// Calls returns how many times Load ran.
func (m *EngineLoader) Calls() int {
	return int(m.calls.Load())
}

var _ ports.EngineLoader = (*EngineLoader)(nil)

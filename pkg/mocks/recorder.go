package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/user/vinacrop/pkg/ports"
)

// Recorder is a mock implementation of ports.Recorder.
// Supported lists the mime types IsTypeSupported accepts; nil accepts all.
type Recorder struct {
	mu      sync.Mutex
	frames  int
	started bool

	Supported    map[string]bool
	StartErr     error
	WriteErr     error
	StopSegments [][]byte
	StopErr      error

	Options   ports.RecorderOptions
	StopCalls int
}

func (m *Recorder) IsTypeSupported(mimeType string) bool {
	if m.Supported == nil {
		return true
	}
	return m.Supported[mimeType]
}

func (m *Recorder) Start(ctx context.Context, opts ports.RecorderOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.Options = opts
	m.started = true
	m.frames = 0
	return nil
}

func (m *Recorder) WriteFrame(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.frames++
	return nil
}

func (m *Recorder) Stop() ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	m.started = false
	if m.StopErr != nil {
		return nil, m.StopErr
	}
	if m.StopSegments != nil {
		return m.StopSegments, nil
	}
	return [][]byte{[]byte("seg-1"), []byte("seg-2")}, nil
}

// Frames returns the number of frames written since Start.
func (m *Recorder) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Started reports whether a recording is in progress.
func (m *Recorder) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

var _ ports.Recorder = (*Recorder)(nil)

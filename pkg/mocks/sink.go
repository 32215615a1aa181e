package mocks

import (
	"image"
	"sync"

	"github.com/user/vinacrop/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Recording      []byte
	RecordingExt   string
	StateLog       []byte
	ComposedFrames map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		ComposedFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveRecording(data []byte, ext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recording = data
	m.RecordingExt = ext
	return nil
}

func (m *DebugSink) SaveStateLog(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StateLog = data
	return nil
}

func (m *DebugSink) SaveComposedFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ComposedFrames[index] = img
	return nil
}

// FrameCount returns the number of composed frames saved.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ComposedFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                            { return false }
func (m *NullSink) SaveRecording([]byte, string) error       { return nil }
func (m *NullSink) SaveStateLog([]byte) error                { return nil }
func (m *NullSink) SaveComposedFrame(int, image.Image) error { return nil }

var _ ports.DebugSink = (*NullSink)(nil)

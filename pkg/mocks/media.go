package mocks

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/user/vinacrop/pkg/ports"
)

// MediaSource is a controllable mock implementation of ports.MediaSource.
// When AutoEndAfter is set, each Play run ends on its own after that long.
type MediaSource struct {
	mu       sync.Mutex
	info     ports.SourceInfo
	frame    image.Image
	playing  bool
	position time.Duration
	ended    chan struct{}
	endOnce  *sync.Once
	closed   bool

	AutoEndAfter time.Duration
	PlayErr      error
	RewindErr    error

	PlayCalls   int
	PauseCalls  int
	RewindCalls int
}

// NewMediaSource creates a paused mock source.
func NewMediaSource(info ports.SourceInfo) *MediaSource {
	return &MediaSource{
		info:    info,
		ended:   make(chan struct{}),
		endOnce: &sync.Once{},
	}
}

func (m *MediaSource) Info() ports.SourceInfo {
	return m.info
}

func (m *MediaSource) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayCalls++
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.playing = true
	if m.AutoEndAfter > 0 {
		once, ended := m.endOnce, m.ended
		time.AfterFunc(m.AutoEndAfter, func() {
			once.Do(func() { close(ended) })
		})
	}
	return nil
}

func (m *MediaSource) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PauseCalls++
	m.playing = false
}

func (m *MediaSource) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *MediaSource) Rewind() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RewindCalls++
	if m.RewindErr != nil {
		return m.RewindErr
	}
	m.position = 0
	m.ended = make(chan struct{})
	m.endOnce = &sync.Once{}
	return nil
}

func (m *MediaSource) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MediaSource) CurrentFrame() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

func (m *MediaSource) Ended() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

func (m *MediaSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.playing = false
	return nil
}

// SetFrame sets the frame returned by CurrentFrame.
func (m *MediaSource) SetFrame(img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = img
}

// SetPosition sets the reported playback position.
func (m *MediaSource) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

// End signals end of media for the current run.
func (m *MediaSource) End() {
	m.mu.Lock()
	once, ended := m.endOnce, m.ended
	m.mu.Unlock()
	once.Do(func() { close(ended) })
}

// Closed reports whether Close was called.
func (m *MediaSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.MediaSource = (*MediaSource)(nil)

// MediaOpener is a mock implementation of ports.MediaOpener.
type MediaOpener struct {
	OpenFunc func(ctx context.Context, path string) (ports.MediaSource, error)
}

func (m *MediaOpener) Open(ctx context.Context, path string) (ports.MediaSource, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, path)
	}
	return NewMediaSource(ports.SourceInfo{Path: path, Width: 1920, Height: 1080, FPS: 30}), nil
}

var _ ports.MediaOpener = (*MediaOpener)(nil)

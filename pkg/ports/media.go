// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"image"
	"time"
)

// SourceInfo describes an uploaded source file as probed at open time.
type SourceInfo struct {
	Path        string
	MimeType    string
	Width       int
	Height      int
	FPS         float64
	Duration    time.Duration
	VideoCodec  string
	AudioTracks int // Number of audio streams in the container
}

// HasAudio reports whether the source carries at least one audio track.
func (i SourceInfo) HasAudio() bool {
	return i.AudioTracks > 0
}

// MediaOpener opens source files for playback.
type MediaOpener interface {
	// Open probes the file and returns a paused playback handle positioned at zero.
	Open(ctx context.Context, path string) (MediaSource, error)
}

// MediaSource is a playback handle over one uploaded file.
// Frames are decoded in real time while playing; CurrentFrame always
// returns the most recently decoded frame and never blocks.
type MediaSource interface {
	// Info returns the probed stream information.
	Info() SourceInfo

	// Play starts or resumes real-time playback from the current position.
	Play(ctx context.Context) error

	// Pause stops playback and keeps the current position.
	Pause()

	// Playing reports whether playback is running.
	Playing() bool

	// Rewind moves the position back to zero and rearms Ended.
	Rewind() error

	// Position returns the current playback position.
	Position() time.Duration

	// CurrentFrame returns the latest decoded frame, or nil before the first one.
	// The returned image must not be modified.
	CurrentFrame() image.Image

	// Ended is closed when the current playback run reaches end of media.
	Ended() <-chan struct{}

	// Close stops playback and releases the decoder.
	Close() error
}

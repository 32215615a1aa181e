package ports

import (
	"context"
	"image"
)

// Container mime types a Recorder may produce.
const (
	MimeH264 = "video/webm;codecs=h264"
	MimeWebM = "video/webm"
)

// Recorder captures a stream of rendered frames plus an optional audio track
// into a container, delivered as a list of segments.
type Recorder interface {
	// IsTypeSupported reports whether the recorder can produce the given mime type.
	IsTypeSupported(mimeType string) bool

	// Start begins a recording with the given options.
	Start(ctx context.Context, opts RecorderOptions) error

	// WriteFrame appends one video frame. Frames are assumed to be 1/FPS apart.
	WriteFrame(img image.Image) error

	// Stop finalizes the recording and returns the accumulated segments in order.
	Stop() ([][]byte, error)
}

// RecorderOptions configures one recording.
type RecorderOptions struct {
	Width           int
	Height          int
	FPS             float64
	MimeType        string
	VideoBitsPerSec int
	AudioBitsPerSec int
	Audio           *AudioInput // nil for video-only capture
}

// AudioInput references an audio track of a source file.
type AudioInput struct {
	Path  string
	Track int // Zero-based audio stream index
}

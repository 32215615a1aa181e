package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results of an export.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveRecording saves the intermediate recorded container.
	SaveRecording(data []byte, ext string) error

	// SaveStateLog saves the processing state history as JSON.
	SaveStateLog(data []byte) error

	// SaveComposedFrame saves a composed surface frame.
	SaveComposedFrame(index int, img image.Image) error
}

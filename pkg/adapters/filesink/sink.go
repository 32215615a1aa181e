// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/user/vinacrop/pkg/ports"
)

// Sink saves export intermediates under a base directory:
//
//	recording.<ext>           recorded container before transcoding
//	state.json                processing state history
//	frames/frame-0000.png     sampled composed surface frames
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveRecording saves the recorded container.
func (s *Sink) SaveRecording(data []byte, ext string) error {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "recording."+ext), data)
}

// SaveStateLog saves the state history.
func (s *Sink) SaveStateLog(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "state.json"), data)
}

// SaveComposedFrame saves a composed frame as PNG.
func (s *Sink) SaveComposedFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode composed frame: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)

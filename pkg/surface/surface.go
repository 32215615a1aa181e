// Package surface provides the double-buffered 9:16 paint target shared by
// the render loop, the capture pipeline and previews.
package surface

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/user/vinacrop/pkg/pipeline"
)

// Surface holds a front buffer that readers see and a back buffer that one
// painter fills. Paint swaps them when the painter returns, so readers never
// observe a half-painted frame.
type Surface struct {
	paintMu sync.Mutex // serializes painters; guards back

	mu    sync.RWMutex // guards front and the swap
	front *image.RGBA
	back  *image.RGBA

	frames atomic.Uint64
}

// New creates a surface of the given size. Both buffers start transparent black.
func New(width, height int) *Surface {
	return &Surface{
		front: image.NewRGBA(image.Rect(0, 0, width, height)),
		back:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewTarget creates a 1080x1920 surface.
func NewTarget() *Surface {
	return New(pipeline.TargetWidth, pipeline.TargetHeight)
}

// Size returns the surface dimensions.
func (s *Surface) Size() pipeline.Dimension {
	b := s.front.Bounds()
	return pipeline.Dimension{Width: b.Dx(), Height: b.Dy()}
}

// Paint calls fn with the back buffer and then makes it the front buffer.
// fn must not retain back after returning.
func (s *Surface) Paint(fn func(back *image.RGBA)) {
	s.paintMu.Lock()
	defer s.paintMu.Unlock()

	fn(s.back)

	s.mu.Lock()
	s.front, s.back = s.back, s.front
	s.mu.Unlock()

	s.frames.Add(1)
}

// View calls fn with the front buffer under a read lock. fn must not retain
// or modify img.
func (s *Surface) View(fn func(img image.Image)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.front)
}

// Snapshot returns a copy of the front buffer.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := image.NewRGBA(s.front.Rect)
	copy(out.Pix, s.front.Pix)
	return out
}

// Frames returns the number of completed paints.
func (s *Surface) Frames() uint64 {
	return s.frames.Load()
}

// Ensure Surface implements pipeline.FrameReader
var _ pipeline.FrameReader = (*Surface)(nil)

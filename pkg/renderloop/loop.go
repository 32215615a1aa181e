// Package renderloop repaints the surface once per display refresh for the
// lifetime of an editing session.
package renderloop

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/stages/composite"
	"github.com/user/vinacrop/pkg/surface"
)

// DefaultInterval is one refresh of a 60 Hz display.
const DefaultInterval = time.Second / 60

// Loop calls paint once on Start and then on every tick until stopped.
// A tick that arrives while a paint is running is dropped, so paints never queue.
type Loop struct {
	interval time.Duration
	paint    func()
	logger   ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	ticks atomic.Uint64
}

// New creates a loop. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, paint func(), logger ports.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		interval: interval,
		paint:    paint,
		logger:   logger.WithComponent("render"),
	}
}

// Start begins painting. Starting a running loop does nothing.
// The loop also stops when ctx is cancelled.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	l.logger.Debug("Render loop started at %v per frame", l.interval)
	go l.run(ctx, done)
}

// Stop stops scheduling paints and waits for an in-flight paint to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Debug("Render loop stopped after %d frames", l.ticks.Load())
}

// Running reports whether the loop is scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Ticks returns the number of paints performed.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.paint()
		l.ticks.Add(1)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Painter composes the latest source frame with the current caption style
// into a surface.
type Painter struct {
	surface    *surface.Surface
	renderer   ports.Renderer
	compositor *composite.Compositor
	frame      func() image.Image
	config     func() pipeline.VideoConfig

	canvases map[*image.RGBA]ports.Canvas // one per buffer; touched only inside Paint
}

// NewPainter creates a Painter. frame may return nil before the first
// decoded frame.
func NewPainter(
	s *surface.Surface,
	renderer ports.Renderer,
	frame func() image.Image,
	config func() pipeline.VideoConfig,
) *Painter {
	return &Painter{
		surface:    s,
		renderer:   renderer,
		compositor: composite.NewCompositor(),
		frame:      frame,
		config:     config,
		canvases:   make(map[*image.RGBA]ports.Canvas, 2),
	}
}

// Paint composes one frame.
func (p *Painter) Paint() {
	frame := p.frame()
	cfg := p.config()

	p.surface.Paint(func(back *image.RGBA) {
		canvas, ok := p.canvases[back]
		if !ok {
			canvas = p.renderer.WrapCanvas(back)
			p.canvases[back] = canvas
		}
		p.compositor.Compose(canvas, frame, cfg)
	})
}

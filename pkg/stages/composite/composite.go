// Package composite paints the 9:16 frame: the source frame cover-fitted onto
// a black surface, then the caption box and its lines.
package composite

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sort"
	"sync"

	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/stages/layout"
)

// Compositor draws one frame onto a canvas. It holds no state and may be
// shared between goroutines drawing onto different canvases.
type Compositor struct{}

// NewCompositor creates a Compositor.
func NewCompositor() *Compositor {
	return &Compositor{}
}

// Compose paints frame and the caption described by cfg onto canvas and
// returns the caption layout it used. A nil frame skips the video draw.
func (c *Compositor) Compose(canvas ports.Canvas, frame image.Image, cfg pipeline.VideoConfig) pipeline.CaptionLayout {
	w, h := canvas.Size()

	canvas.Fill(color.Black)

	if frame != nil {
		b := frame.Bounds()
		if r := layout.FitCover(b.Dx(), b.Dy(), w, h); r.Width > 0 {
			canvas.DrawImageScaled(frame, r.X, r.Y, r.Width, r.Height)
		}
	}

	style := ports.TextStyle{
		FontSize: cfg.FontSize,
		Bold:     true,
		Color:    pipeline.HexColor(cfg.FontColor, 1),
		Align:    ports.AlignCenter,
	}

	caption := layout.ComputeCaption(pipeline.CaptionInput{
		CanvasWidth:  w,
		CanvasHeight: h,
		Text:         cfg.TextOverlay,
		FontSize:     cfg.FontSize,
		Measure: func(text string) float64 {
			width, _ := canvas.MeasureText(text, style)
			return width
		},
	})
	if len(caption.Lines) == 0 {
		return caption
	}

	box := caption.Box
	canvas.DrawRect(box.X, box.Y, box.Width, box.Height,
		pipeline.HexColor(cfg.BackgroundColor, cfg.BackgroundOpacity))

	for i, line := range caption.Lines {
		canvas.DrawText(line, caption.CenterX, caption.LineY[i], style)
	}
	return caption
}

// Stage composes a batch of still frames, used for previews.
type Stage struct {
	renderer   ports.Renderer
	compositor *Compositor
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new composite stage.
func NewStage(renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		compositor: NewCompositor(),
		sink:       sink,
		logger:     logger.WithComponent("composite"),
		numWorkers: numWorkers,
	}
}

// Execute composes all frames.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	if len(input.Frames) == 0 {
		return pipeline.CompositeResult{Frames: []pipeline.ComposedFrame{}}, nil
	}
	if input.Size.Width <= 0 || input.Size.Height <= 0 {
		input.Size = pipeline.Dimension{Width: pipeline.TargetWidth, Height: pipeline.TargetHeight}
	}

	workers := s.numWorkers
	if workers > len(input.Frames) {
		workers = len(input.Frames)
	}
	s.logger.Debug("Compositing %d frames with %d workers", len(input.Frames), workers)

	jobs := make(chan int, len(input.Frames))
	results := make(chan pipeline.ComposedFrame, len(input.Frames))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- s.composeFrame(input, idx)
			}
		}()
	}

	for i := range input.Frames {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	frames := make([]pipeline.ComposedFrame, 0, len(input.Frames))
	for frame := range results {
		frames = append(frames, frame)
		if s.sink.Enabled() {
			if err := s.sink.SaveComposedFrame(frame.Index, frame.Image); err != nil {
				s.logger.Warn("Failed to save composed frame %d: %v", frame.Index, err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return pipeline.CompositeResult{}, fmt.Errorf("compose frames: %w", err)
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Index < frames[j].Index
	})

	s.logger.Debug("Composition completed")
	return pipeline.CompositeResult{Frames: frames}, nil
}

func (s *Stage) composeFrame(input pipeline.CompositeInput, idx int) pipeline.ComposedFrame {
	canvas := s.renderer.CreateCanvas(input.Size.Width, input.Size.Height, color.Black)
	caption := s.compositor.Compose(canvas, input.Frames[idx], input.Config)
	return pipeline.ComposedFrame{
		Index:  idx,
		Image:  canvas.ToImage(),
		Layout: caption,
	}
}

// Ensure Stage implements pipeline.Stage
var _ pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult] = (*Stage)(nil)

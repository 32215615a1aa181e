package composite

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/user/vinacrop/pkg/adapters/logger"
	"github.com/user/vinacrop/pkg/mocks"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCompositor_Compose(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)
	frame := image.NewRGBA(image.Rect(0, 0, 1280, 720))

	cfg := pipeline.DefaultVideoConfig("Hello World")
	caption := NewCompositor().Compose(canvas, frame, cfg)

	ops := canvas.Ops()
	if len(ops) != 4 {
		t.Fatalf("expected fill, image, rect, text; got %d ops", len(ops))
	}
	if ops[0].Kind != "fill" || ops[0].Color != color.Black {
		t.Errorf("expected black fill first, got %+v", ops[0])
	}

	img := ops[1]
	if img.Kind != "image" {
		t.Fatalf("expected image op, got %s", img.Kind)
	}
	if !almostEqual(img.H, 1920) || !almostEqual(img.X, (1080-img.W)/2) || img.Y != 0 {
		t.Errorf("expected height-matched centered draw, got %+v", img)
	}

	rect := ops[2]
	if rect.Kind != "rect" {
		t.Fatalf("expected rect op, got %s", rect.Kind)
	}
	if rect.X != 40 || rect.W != 1000 || !almostEqual(rect.H, 48*1.4+80) || !almostEqual(rect.Y, 1920-rect.H-200) {
		t.Errorf("unexpected caption box %+v", rect)
	}
	if rect.Color != (color.NRGBA{A: 153}) {
		t.Errorf("expected 60%% black box, got %v", rect.Color)
	}

	text := ops[3]
	if text.Text != "Hello World" || text.X != 540 || !almostEqual(text.Y, rect.Y+40+24) {
		t.Errorf("unexpected text op %+v", text)
	}
	if !text.Style.Bold || text.Style.FontSize != 48 || text.Style.Align != ports.AlignCenter {
		t.Errorf("unexpected text style %+v", text.Style)
	}
	if text.Color != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("expected white text, got %v", text.Color)
	}

	if len(caption.Lines) != 1 {
		t.Errorf("expected one caption line, got %v", caption.Lines)
	}
}

func TestCompositor_EmptyTextSkipsOverlay(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)

	NewCompositor().Compose(canvas, image.NewRGBA(image.Rect(0, 0, 640, 360)), pipeline.DefaultVideoConfig(""))

	if n := len(canvas.OpsOfKind("rect")); n != 0 {
		t.Errorf("expected no caption box, got %d rects", n)
	}
	if n := len(canvas.OpsOfKind("text")); n != 0 {
		t.Errorf("expected no text, got %d", n)
	}
}

func TestCompositor_NoFrameDrawsCaptionOnly(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)

	NewCompositor().Compose(canvas, nil, pipeline.DefaultVideoConfig("caption"))

	if n := len(canvas.OpsOfKind("image")); n != 0 {
		t.Errorf("expected no image draw without a frame, got %d", n)
	}
	if n := len(canvas.OpsOfKind("fill")); n != 1 {
		t.Errorf("expected black fill, got %d", n)
	}
	if n := len(canvas.OpsOfKind("text")); n != 1 {
		t.Errorf("expected caption text, got %d", n)
	}
}

func TestCompositor_PortraitSourceCropsVertically(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)

	NewCompositor().Compose(canvas, image.NewRGBA(image.Rect(0, 0, 720, 1600)), pipeline.DefaultVideoConfig(""))

	img := canvas.OpsOfKind("image")[0]
	if img.W != 1080 || img.X != 0 || !almostEqual(img.Y, (1920-img.H)/2) {
		t.Errorf("expected width-matched vertically centered draw, got %+v", img)
	}
}

func TestCompositor_WrapsLongCaption(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)
	// 25 chars at 10px = 250px; four words per 1000px line would be 1030px.
	word := "abcdefghijklmnopqrstuvwxy"
	text := word + " " + word + " " + word + " " + word + " " + word

	caption := NewCompositor().Compose(canvas, nil, pipeline.DefaultVideoConfig(text))

	if len(caption.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", caption.Lines)
	}
	texts := canvas.OpsOfKind("text")
	if len(texts) != 2 {
		t.Fatalf("expected 2 text ops, got %d", len(texts))
	}
	if !almostEqual(texts[1].Y-texts[0].Y, 48*1.4) {
		t.Errorf("expected lines one line height apart, got %f", texts[1].Y-texts[0].Y)
	}
}

func TestCompositor_MeasuresInCaptionStyle(t *testing.T) {
	canvas := mocks.NewCanvas(pipeline.TargetWidth, pipeline.TargetHeight)

	var mu sync.Mutex
	var styles []ports.TextStyle
	canvas.MeasureTextFunc = func(text string, style ports.TextStyle) (float64, float64) {
		mu.Lock()
		styles = append(styles, style)
		mu.Unlock()
		return float64(len(text)) * 10, style.FontSize
	}

	cfg := pipeline.DefaultVideoConfig("one two three")
	cfg.FontSize = 72
	NewCompositor().Compose(canvas, nil, cfg)

	if len(styles) == 0 {
		t.Fatal("expected caption to be measured")
	}
	for _, s := range styles {
		if !s.Bold || s.FontSize != 72 {
			t.Errorf("expected bold 72px measure, got %+v", s)
		}
	}
}

func TestStage_Execute(t *testing.T) {
	var mu sync.Mutex
	var canvases []*mocks.Canvas
	renderer := &mocks.Renderer{
		CreateCanvasFunc: func(width, height int, bg color.Color) ports.Canvas {
			c := mocks.NewCanvas(width, height)
			mu.Lock()
			canvases = append(canvases, c)
			mu.Unlock()
			return c
		},
	}
	sink := mocks.NewDebugSink(true)

	stage := NewStage(renderer, sink, logger.NewNoop(), 2)

	frames := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 1280, 720)),
		nil,
		image.NewRGBA(image.Rect(0, 0, 1920, 1080)),
	}
	result, err := stage.Execute(context.Background(), pipeline.CompositeInput{
		Frames: frames,
		Config: pipeline.DefaultVideoConfig("Hello"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(result.Frames))
	}
	for i, f := range result.Frames {
		if f.Index != i {
			t.Errorf("frame %d out of order: index %d", i, f.Index)
		}
		if f.Image == nil {
			t.Errorf("frame %d: image is nil", i)
		}
		if len(f.Layout.Lines) != 1 {
			t.Errorf("frame %d: expected caption layout", i)
		}
	}

	if len(canvases) != 3 {
		t.Errorf("expected 3 canvases, got %d", len(canvases))
	}
	for _, c := range canvases {
		if w, h := c.Size(); w != pipeline.TargetWidth || h != pipeline.TargetHeight {
			t.Errorf("expected default target size, got %dx%d", w, h)
		}
	}
	if sink.FrameCount() != 3 {
		t.Errorf("expected 3 debug frames, got %d", sink.FrameCount())
	}
}

func TestStage_Execute_EmptyFrames(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, mocks.NewDebugSink(false), logger.NewNoop(), 2)

	result, err := stage.Execute(context.Background(), pipeline.CompositeInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Frames) != 0 {
		t.Errorf("expected no frames, got %d", len(result.Frames))
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, mocks.NewDebugSink(false), logger.NewNoop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stage.Execute(ctx, pipeline.CompositeInput{Frames: []image.Image{nil, nil}})
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

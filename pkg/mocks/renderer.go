package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/user/vinacrop/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	WrapCanvasFunc   func(img *image.RGBA) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return NewCanvas(width, height)
}

func (m *Renderer) WrapCanvas(img *image.RGBA) ports.Canvas {
	if m.WrapCanvasFunc != nil {
		return m.WrapCanvasFunc(img)
	}
	b := img.Bounds()
	c := NewCanvas(b.Dx(), b.Dy())
	c.img = img
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

var _ ports.Renderer = (*Renderer)(nil)

// DrawOp is one recorded canvas call.
type DrawOp struct {
	Kind  string // fill, image, rect, text
	X, Y  float64
	W, H  float64
	Text  string
	Color color.Color
	Style ports.TextStyle
	Image image.Image
}

// Canvas is a mock implementation of ports.Canvas that records draw calls.
// Text width defaults to CharWidth per byte.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	img    *image.RGBA
	ops    []DrawOp

	CharWidth       float64
	MeasureTextFunc func(text string, style ports.TextStyle) (float64, float64)
}

// NewCanvas creates a recording canvas.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{width: width, height: height, CharWidth: 10}
}

func (m *Canvas) Size() (int, int) {
	return m.width, m.height
}

func (m *Canvas) Fill(c color.Color) {
	m.record(DrawOp{Kind: "fill", Color: c})
}

func (m *Canvas) DrawImageScaled(img image.Image, x, y, width, height float64) {
	m.record(DrawOp{Kind: "image", X: x, Y: y, W: width, H: height, Image: img})
}

func (m *Canvas) DrawRect(x, y, w, h float64, c color.Color) {
	m.record(DrawOp{Kind: "rect", X: x, Y: y, W: w, H: h, Color: c})
}

func (m *Canvas) DrawText(text string, x, y float64, style ports.TextStyle) {
	m.record(DrawOp{Kind: "text", X: x, Y: y, Text: text, Color: style.Color, Style: style})
}

func (m *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	if m.MeasureTextFunc != nil {
		return m.MeasureTextFunc(text, style)
	}
	return float64(len(text)) * m.CharWidth, style.FontSize
}

func (m *Canvas) ToImage() image.Image {
	if m.img != nil {
		return m.img
	}
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

// Ops returns the recorded draw calls.
func (m *Canvas) Ops() []DrawOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DrawOp, len(m.ops))
	copy(out, m.ops)
	return out
}

// OpsOfKind returns the recorded draw calls of one kind.
func (m *Canvas) OpsOfKind(kind string) []DrawOp {
	var out []DrawOp
	for _, op := range m.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Reset clears the recorded calls.
func (m *Canvas) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *Canvas) record(op DrawOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

var _ ports.Canvas = (*Canvas)(nil)

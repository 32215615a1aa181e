// Package ggrenderer provides a renderer implementation using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/user/vinacrop/pkg/ports"
)

// Renderer implements ports.Renderer using the gg library.
// Font faces are shared by every canvas the renderer creates.
type Renderer struct {
	fonts *fontCache
}

// New creates a new Renderer.
func New() *Renderer {
	return &Renderer{fonts: newFontCache()}
}

// CreateCanvas creates a new drawing canvas.
func (r *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	return &Canvas{dc: dc, fonts: r.fonts}
}

// WrapCanvas returns a canvas drawing directly into img.
func (r *Renderer) WrapCanvas(img *image.RGBA) ports.Canvas {
	return &Canvas{dc: gg.NewContextForRGBA(img), fonts: r.fonts}
}

// EncodeImage encodes an image to the specified format.
func (r *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		opts := &jpeg.Options{Quality: quality}
		if err := jpeg.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)

// Canvas implements ports.Canvas using gg.Context.
type Canvas struct {
	dc    *gg.Context
	fonts *fontCache
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (int, int) {
	return c.dc.Width(), c.dc.Height()
}

// Fill paints the whole canvas.
func (c *Canvas) Fill(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

// DrawImageScaled draws an image scaled into the given rectangle.
func (c *Canvas) DrawImageScaled(img image.Image, x, y, width, height float64) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}

	c.dc.Push()
	defer c.dc.Pop()

	c.dc.Translate(x, y)
	c.dc.Scale(width/float64(bounds.Dx()), height/float64(bounds.Dy()))
	c.dc.DrawImage(img, -bounds.Min.X, -bounds.Min.Y)
}

// DrawRect draws a filled rectangle.
func (c *Canvas) DrawRect(x, y, w, h float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

// DrawText draws text at the specified position, vertically centered on y.
func (c *Canvas) DrawText(text string, x, y float64, style ports.TextStyle) {
	if face := c.fonts.face(style.FontSize, style.Bold); face != nil {
		c.dc.SetFontFace(face)
	}
	c.dc.SetColor(style.Color)

	ax := 0.0
	switch style.Align {
	case ports.AlignCenter:
		ax = 0.5
	case ports.AlignRight:
		ax = 1.0
	}

	c.dc.DrawStringAnchored(text, x, y, ax, 0.5)
}

// MeasureText returns the rendered size of text.
func (c *Canvas) MeasureText(text string, style ports.TextStyle) (float64, float64) {
	if face := c.fonts.face(style.FontSize, style.Bold); face != nil {
		c.dc.SetFontFace(face)
	}
	return c.dc.MeasureString(text)
}

// ToImage returns the canvas as an image.Image.
func (c *Canvas) ToImage() image.Image {
	return c.dc.Image()
}

// Ensure Canvas implements ports.Canvas
var _ ports.Canvas = (*Canvas)(nil)

type faceKey struct {
	size float64
	bold bool
}

// fontCache holds parsed Go fonts and one face per (size, weight).
type fontCache struct {
	mu      sync.Mutex
	regular *opentype.Font
	bold    *opentype.Font
	faces   map[faceKey]font.Face
}

func newFontCache() *fontCache {
	fc := &fontCache{faces: make(map[faceKey]font.Face)}
	// Embedded fonts always parse; a nil font falls back to gg's default face.
	fc.regular, _ = opentype.Parse(goregular.TTF)
	fc.bold, _ = opentype.Parse(gobold.TTF)
	return fc
}

func (fc *fontCache) face(size float64, bold bool) font.Face {
	if size <= 0 {
		return nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	key := faceKey{size: size, bold: bold}
	if f, ok := fc.faces[key]; ok {
		return f
	}

	src := fc.regular
	if bold {
		src = fc.bold
	}
	if src == nil {
		return nil
	}

	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}
	fc.faces[key] = f
	return f
}

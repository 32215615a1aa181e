package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts image processing operations.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the specified dimensions and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// WrapCanvas returns a canvas that paints directly into img.
	WrapCanvas(img *image.RGBA) Canvas

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)
}

// Canvas provides drawing operations for compositing frames.
// Coordinates are in canvas pixels and may be fractional or negative.
type Canvas interface {
	// Size returns the canvas dimensions.
	Size() (width, height int)

	// Fill paints the whole canvas with c.
	Fill(c color.Color)

	// DrawImageScaled draws img scaled into the rectangle (x, y, width, height).
	DrawImageScaled(img image.Image, x, y, width, height float64)

	// DrawRect draws a filled rectangle. Alpha in c is honored.
	DrawRect(x, y, w, h float64, c color.Color)

	// DrawText draws text anchored at (x, y) with vertical middle alignment.
	DrawText(text string, x, y float64, style TextStyle)

	// MeasureText returns the width and height of the text.
	MeasureText(text string, style TextStyle) (width, height float64)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// TextStyle defines text rendering properties.
type TextStyle struct {
	FontSize float64
	Bold     bool
	Color    color.Color
	Align    TextAlign
}

// TextAlign specifies text alignment.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)

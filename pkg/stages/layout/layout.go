// Package layout computes the geometry of a composed frame: where the source
// frame is drawn and where the caption lines and box go.
package layout

import (
	"strings"

	"github.com/user/vinacrop/pkg/pipeline"
)

const (
	// CaptionMargin is the horizontal inset of the caption box and the
	// vertical padding inside it.
	CaptionMargin = 40.0

	// CaptionBottomOffset is the distance from the box bottom to the canvas bottom.
	CaptionBottomOffset = 200.0

	// LineHeightFactor scales the font size to the line pitch.
	LineHeightFactor = 1.4
)

// FitCover scales a source of srcW x srcH to cover a dstW x dstH canvas,
// centered, preserving aspect ratio. Offsets are zero or negative.
func FitCover(srcW, srcH, dstW, dstH int) pipeline.Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return pipeline.Rect{}
	}

	vidAspect := float64(srcW) / float64(srcH)
	canvasAspect := float64(dstW) / float64(dstH)

	var r pipeline.Rect
	if vidAspect > canvasAspect {
		// Source is wider: match heights, crop the sides.
		r.Height = float64(dstH)
		r.Width = r.Height * vidAspect
		r.X = (float64(dstW) - r.Width) / 2
	} else {
		// Source is taller or equal: match widths, crop top and bottom.
		r.Width = float64(dstW)
		r.Height = r.Width / vidAspect
		r.Y = (float64(dstH) - r.Height) / 2
	}
	return r
}

// WrapText greedily breaks text into lines narrower than maxWidth.
// Words are separated by single spaces exactly as typed, so repeated spaces
// produce empty words. A word wider than maxWidth stands on its own line.
func WrapText(text string, maxWidth float64, measure pipeline.MeasureFunc) []string {
	words := strings.Split(text, " ")
	lines := make([]string, 0, 4)

	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) < maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// ComputeCaption lays out the caption box for text at the bottom of the canvas.
// Empty text yields a layout with no lines.
func ComputeCaption(input pipeline.CaptionInput) pipeline.CaptionLayout {
	w := float64(input.CanvasWidth)
	h := float64(input.CanvasHeight)
	lineHeight := input.FontSize * LineHeightFactor

	out := pipeline.CaptionLayout{
		LineHeight: lineHeight,
		CenterX:    w / 2,
	}
	if input.Text == "" {
		return out
	}

	out.Lines = WrapText(input.Text, w-CaptionMargin*2, input.Measure)

	boxHeight := float64(len(out.Lines))*lineHeight + CaptionMargin*2
	boxY := h - boxHeight - CaptionBottomOffset
	out.Box = pipeline.Rect{
		X:      CaptionMargin,
		Y:      boxY,
		Width:  w - CaptionMargin*2,
		Height: boxHeight,
	}

	out.LineY = make([]float64, len(out.Lines))
	for i := range out.Lines {
		out.LineY[i] = boxY + CaptionMargin + float64(i)*lineHeight + input.FontSize/2
	}
	return out
}

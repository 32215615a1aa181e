package pipeline

import (
	"image/color"
	"testing"
)

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		ok      bool
	}{
		{"#ffffff", 255, 255, 255, true},
		{"#000000", 0, 0, 0, true},
		{"1a2B3c", 0x1a, 0x2b, 0x3c, true},
		{"#FF8800", 255, 136, 0, true},
		{"#fff", 0, 0, 0, false},
		{"#gggggg", 0, 0, 0, false},
		{"", 0, 0, 0, false},
		{"##ffffff", 0, 0, 0, false},
	}

	for _, tt := range tests {
		r, g, b, ok := HexToRGB(tt.in)
		if r != tt.r || g != tt.g || b != tt.b || ok != tt.ok {
			t.Errorf("HexToRGB(%q) = %d,%d,%d,%v; want %d,%d,%d,%v", tt.in, r, g, b, ok, tt.r, tt.g, tt.b, tt.ok)
		}
	}
}

func TestHexColor(t *testing.T) {
	if got := HexColor("#000000", 0.6); got != (color.NRGBA{A: 153}) {
		t.Errorf("expected 60%% black, got %v", got)
	}
	if got := HexColor("nonsense", 1); got != (color.NRGBA{A: 255}) {
		t.Errorf("expected opaque black fallback, got %v", got)
	}
	if got := HexColor("#ffffff", 2); got.A != 255 {
		t.Errorf("expected opacity clamped to 1, got %d", got.A)
	}
	if got := HexColor("#ffffff", -1); got.A != 0 {
		t.Errorf("expected opacity clamped to 0, got %d", got.A)
	}
}

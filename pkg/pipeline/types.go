package pipeline

import (
	"encoding/json"
	"image"
	"time"

	"github.com/user/vinacrop/pkg/ports"
)

// =============================================================================
// Target Surface
// =============================================================================

const (
	// TargetWidth and TargetHeight are the fixed 9:16 output resolution.
	TargetWidth  = 1080
	TargetHeight = 1920

	// CaptureFPS is the rate at which the surface is captured during export.
	CaptureFPS = 60.0

	// CaptureVideoBitsPerSec is the recorder bitrate target (25 Mbps).
	CaptureVideoBitsPerSec = 25_000_000

	// CaptureAudioBitsPerSec is the recorder audio bitrate.
	CaptureAudioBitsPerSec = 128_000
)

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rect is a rectangle in canvas coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// =============================================================================
// Caption Configuration
// =============================================================================

// VideoConfig is the caption style applied to every composed frame.
type VideoConfig struct {
	TextOverlay       string  `json:"textOverlay" yaml:"text_overlay"`
	FontSize          float64 `json:"fontSize" yaml:"font_size" validate:"gte=24,lte=120"`
	FontColor         string  `json:"fontColor" yaml:"font_color" validate:"len=7,hexcolor"`
	BackgroundColor   string  `json:"backgroundColor" yaml:"background_color" validate:"len=7,hexcolor"`
	BackgroundOpacity float64 `json:"backgroundOpacity" yaml:"background_opacity" validate:"gte=0,lte=1"`
}

// DefaultVideoConfig returns the caption style a new session starts with.
func DefaultVideoConfig(text string) VideoConfig {
	return VideoConfig{
		TextOverlay:       text,
		FontSize:          48,
		FontColor:         "#ffffff",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.6,
	}
}

// =============================================================================
// Layout Stage Types
// =============================================================================

// MeasureFunc returns the rendered width of text in the caption font.
type MeasureFunc func(text string) float64

// CaptionInput contains parameters for caption layout.
type CaptionInput struct {
	CanvasWidth  int
	CanvasHeight int
	Text         string
	FontSize     float64
	Measure      MeasureFunc
}

// CaptionLayout is the computed caption geometry.
type CaptionLayout struct {
	Lines      []string
	Box        Rect
	LineHeight float64
	CenterX    float64
	LineY      []float64 // Vertical middle of each line
}

// =============================================================================
// Processing State
// =============================================================================

// ProcessingStage is one step of the export state machine.
type ProcessingStage string

const (
	StageIdle        ProcessingStage = "idle"
	StageRecording   ProcessingStage = "recording"
	StageTranscoding ProcessingStage = "transcoding"
	StageCompleted   ProcessingStage = "completed"
	StageError       ProcessingStage = "error"
)

// ProcessingState is the observable export state.
// IsProcessing is derived from Stage so it can never disagree with it.
type ProcessingState struct {
	Stage        ProcessingStage
	Progress     int // 0-100, meaningful during transcoding
	ErrorMessage string
}

// IsProcessing reports whether an export is in flight.
func (s ProcessingState) IsProcessing() bool {
	return s.Stage == StageRecording || s.Stage == StageTranscoding
}

// DisplayProgress returns the progress to show. Recording has no measurable
// progress and is shown as full.
func (s ProcessingState) DisplayProgress() int {
	if s.Stage == StageRecording {
		return 100
	}
	return s.Progress
}

// MarshalJSON includes the derived isProcessing flag.
func (s ProcessingState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IsProcessing bool            `json:"isProcessing"`
		Progress     int             `json:"progress"`
		Stage        ProcessingStage `json:"stage"`
		ErrorMessage string          `json:"errorMessage,omitempty"`
	}{s.IsProcessing(), s.Progress, s.Stage, s.ErrorMessage})
}

// =============================================================================
// Capture Stage Types
// =============================================================================

// FrameReader gives read access to the latest painted surface.
type FrameReader interface {
	// View calls fn with the front buffer. fn must not retain img.
	View(fn func(img image.Image))
}

// CaptureInput contains parameters for capturing the surface during playback.
type CaptureInput struct {
	Source          ports.MediaSource
	Surface         FrameReader
	Size            Dimension
	FPS             float64
	VideoBitsPerSec int
	AudioBitsPerSec int
}

// DefaultCaptureInput returns CaptureInput with default values for source and surface.
func DefaultCaptureInput(source ports.MediaSource, surface FrameReader) CaptureInput {
	return CaptureInput{
		Source:          source,
		Surface:         surface,
		Size:            Dimension{Width: TargetWidth, Height: TargetHeight},
		FPS:             CaptureFPS,
		VideoBitsPerSec: CaptureVideoBitsPerSec,
		AudioBitsPerSec: CaptureAudioBitsPerSec,
	}
}

// CaptureResult contains the recorded container.
type CaptureResult struct {
	Container     []byte
	MimeType      string
	Segments      int
	Frames        int
	AudioAttached bool
	Duration      time.Duration
}

// =============================================================================
// Transcode Stage Types
// =============================================================================

// TranscodeInput contains the recorded container to re-encode.
type TranscodeInput struct {
	Container  []byte
	OnProgress func(percent int)
}

// TranscodeResult contains the delivery MP4.
type TranscodeResult struct {
	Data     []byte
	Duration time.Duration
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput contains source frames to compose with one caption style.
// A nil frame composes black plus caption.
type CompositeInput struct {
	Frames []image.Image
	Config VideoConfig
	Size   Dimension
}

// ComposedFrame is one composed output frame.
type ComposedFrame struct {
	Index  int
	Image  image.Image
	Layout CaptionLayout
}

// CompositeResult contains the composed frames in input order.
type CompositeResult struct {
	Frames []ComposedFrame
}

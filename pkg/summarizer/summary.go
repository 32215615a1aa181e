// Package summarizer provides summary generation for export results.
package summarizer

import "time"

// Summary contains all data collected during one export.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	ExportID    string

	// Uploaded source
	Source SourceInfo

	// Caption style applied to every frame
	Caption CaptionInfo

	// Intermediate recording
	Recording RecordingInfo

	// Delivered file
	Output OutputInfo

	// Stage durations
	Timing TimingInfo
}

// SourceInfo describes the uploaded video.
type SourceInfo struct {
	Path        string
	Width       int
	Height      int
	FPS         float64
	Duration    time.Duration
	VideoCodec  string
	AudioTracks int
}

// CaptionInfo contains the caption settings.
type CaptionInfo struct {
	Text              string
	FontSize          float64
	FontColor         string
	BackgroundColor   string
	BackgroundOpacity float64
}

// RecordingInfo contains information about the captured container.
type RecordingInfo struct {
	MimeType      string
	Frames        int
	Segments      int
	Bytes         int
	AudioAttached bool
}

// OutputInfo contains information about the delivered MP4.
// Codec fields are empty when the file could not be inspected.
type OutputInfo struct {
	Path         string
	FileSize     int64
	VideoCodec   string
	AudioCodec   string
	Width        int
	Height       int
	InspectError string
}

// TimingInfo contains stage durations.
type TimingInfo struct {
	Recording time.Duration
	Transcode time.Duration
	Write     time.Duration
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithExportID sets the export identifier.
func (b *Builder) WithExportID(id string) *Builder {
	b.summary.ExportID = id
	return b
}

// WithSource sets source information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithCaption sets caption settings.
func (b *Builder) WithCaption(caption CaptionInfo) *Builder {
	b.summary.Caption = caption
	return b
}

// WithRecording sets recording information.
func (b *Builder) WithRecording(recording RecordingInfo) *Builder {
	b.summary.Recording = recording
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// WithTiming sets stage durations.
func (b *Builder) WithTiming(timing TimingInfo) *Builder {
	b.summary.Timing = timing
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

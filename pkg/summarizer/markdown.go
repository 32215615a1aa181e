package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter formats a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		if fn != nil {
			f.translate = fn
		}
	}
}

// WithVersion sets the tool version shown in the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Export Summary"))
	if s.ExportID != "" {
		fmt.Fprintf(&b, "- %s: `%s`\n", t("Export ID"), s.ExportID)
	}
	fmt.Fprintf(&b, "- %s: %s\n\n", t("Generated At"), s.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## %s\n\n", t("Source"))
	f.header(&b)
	f.row(&b, t("File"), or(s.Source.Path, "-"))
	f.row(&b, t("Resolution"), fmt.Sprintf("%dx%d", s.Source.Width, s.Source.Height))
	f.row(&b, t("Frame Rate"), fmt.Sprintf("%.2f fps", s.Source.FPS))
	f.row(&b, t("Duration"), formatDuration(s.Source.Duration))
	f.row(&b, t("Video Codec"), or(s.Source.VideoCodec, t("Unknown")))
	f.row(&b, t("Audio Tracks"), fmt.Sprintf("%d", s.Source.AudioTracks))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Caption"))
	f.header(&b)
	f.row(&b, t("Text"), escapeCell(s.Caption.Text))
	f.row(&b, t("Font Size"), fmt.Sprintf("%g px", s.Caption.FontSize))
	f.row(&b, t("Font Color"), s.Caption.FontColor)
	f.row(&b, t("Background Color"), s.Caption.BackgroundColor)
	f.row(&b, t("Background Opacity"), fmt.Sprintf("%.0f%%", s.Caption.BackgroundOpacity*100))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Recording"))
	f.header(&b)
	f.row(&b, t("Container"), or(s.Recording.MimeType, "-"))
	f.row(&b, t("Frames"), fmt.Sprintf("%d", s.Recording.Frames))
	f.row(&b, t("Segments"), fmt.Sprintf("%d", s.Recording.Segments))
	f.row(&b, t("Size"), formatBytes(int64(s.Recording.Bytes)))
	f.row(&b, t("Audio"), f.yesNo(s.Recording.AudioAttached))
	f.row(&b, t("Duration"), formatDuration(s.Timing.Recording))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Output"))
	f.header(&b)
	f.row(&b, t("File"), or(s.Output.Path, "-"))
	f.row(&b, t("Size"), formatBytes(s.Output.FileSize))
	if s.Output.InspectError != "" {
		f.row(&b, t("Streams"), fmt.Sprintf("%s (%s)", t("Not inspected"), escapeCell(s.Output.InspectError)))
	} else {
		f.row(&b, t("Resolution"), fmt.Sprintf("%dx%d", s.Output.Width, s.Output.Height))
		f.row(&b, t("Video Codec"), or(s.Output.VideoCodec, t("None")))
		f.row(&b, t("Audio Codec"), or(s.Output.AudioCodec, t("None")))
	}
	f.row(&b, t("Conversion Time"), formatDuration(s.Timing.Transcode))
	b.WriteString("\n")

	b.WriteString("---\n\n")
	if f.version != "" {
		fmt.Fprintf(&b, "*%s vinacrop %s*\n", t("Generated by"), f.version)
	} else {
		fmt.Fprintf(&b, "*%s vinacrop*\n", t("Generated by"))
	}

	return b.String()
}

func (f *MarkdownFormatter) header(b *strings.Builder) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|---|---|\n")
}

func (f *MarkdownFormatter) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

func (f *MarkdownFormatter) yesNo(v bool) string {
	if v {
		return f.translate("Yes")
	}
	return f.translate("No")
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// escapeCell keeps table cells on a single row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// formatDuration renders d with millisecond precision.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// formatBytes renders n with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 2; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMG"[exp])
}

var _ Formatter = (*MarkdownFormatter)(nil)

// Package main provides the CLI entry point for vinacrop.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/vinacrop/pkg/adapters/ffmpegbin"
	"github.com/user/vinacrop/pkg/adapters/ffmpegengine"
	"github.com/user/vinacrop/pkg/adapters/ffmpegrecorder"
	"github.com/user/vinacrop/pkg/adapters/ffmpegsource"
	"github.com/user/vinacrop/pkg/adapters/filesink"
	"github.com/user/vinacrop/pkg/adapters/ggrenderer"
	"github.com/user/vinacrop/pkg/adapters/logger"
	"github.com/user/vinacrop/pkg/adapters/mp4probe"
	"github.com/user/vinacrop/pkg/adapters/nullsink"
	"github.com/user/vinacrop/pkg/adapters/osfilesystem"
	"github.com/user/vinacrop/pkg/config"
	"github.com/user/vinacrop/pkg/engine"
	"github.com/user/vinacrop/pkg/orchestrator"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/session"
	"github.com/user/vinacrop/pkg/stages/capture"
	"github.com/user/vinacrop/pkg/stages/composite"
	"github.com/user/vinacrop/pkg/stages/transcode"
	"github.com/user/vinacrop/pkg/summarizer"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Export  ExportCmd  `cmd:"" help:"${export_help}"`
	Preview PreviewCmd `cmd:"" help:"${preview_help}"`
	Probe   ProbeCmd   `cmd:"" help:"${probe_help}"`
	Version VersionCmd `cmd:"" help:"${version_help}"`
}

// StyleFlags are the caption overrides shared by export and preview.
type StyleFlags struct {
	Text      *string  `short:"t" help:"${text_help}" group:"caption"`
	FontSize  *float64 `help:"${font_size_help}" group:"caption"`
	FontColor *string  `help:"${font_color_help}" group:"caption"`
	BgColor   *string  `help:"${bg_color_help}" group:"caption"`
	BgOpacity *float64 `help:"${bg_opacity_help}" group:"caption"`
}

// EngineFlags locate the codec engine.
type EngineFlags struct {
	FFmpeg    string `name:"ffmpeg" help:"${ffmpeg_help}" group:"engine"`
	FFprobe   string `name:"ffprobe" help:"${ffprobe_help}" group:"engine"`
	BundleURL string `name:"bundle-url" help:"${bundle_url_help}" group:"engine"`
}

// LogFlags control console output.
type LogFlags struct {
	LogLevel string `short:"l" help:"${log_level_help}" group:"logging"`
	Quiet    bool   `short:"Q" help:"${quiet_help}" group:"logging"`
}

// ExportCmd defines the export subcommand.
type ExportCmd struct {
	Input  string `arg:"" type:"existingfile" help:"${input_help}"`
	Output string `short:"o" help:"${output_dir_help}"`

	Config  string `short:"c" type:"existingfile" help:"${config_help}"`
	Summary string `help:"${summary_help}"`

	StyleFlags
	EngineFlags

	Debug    bool   `short:"d" help:"${debug_help}" group:"debug"`
	DebugDir string `help:"${debug_dir_help}" group:"debug"`

	LogFlags
}

// PreviewCmd defines the preview subcommand.
type PreviewCmd struct {
	Input  string        `arg:"" type:"existingfile" help:"${input_help}"`
	Output string        `short:"o" required:"" help:"${preview_output_help}"`
	At     time.Duration `default:"0s" help:"${at_help}"`

	Config string `short:"c" type:"existingfile" help:"${config_help}"`

	StyleFlags
	EngineFlags
	LogFlags
}

// ProbeCmd defines the probe subcommand.
type ProbeCmd struct {
	Input   string `arg:"" type:"existingfile" help:"${input_help}"`
	FFprobe string `name:"ffprobe" help:"${ffprobe_help}"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("vinacrop"),
		kong.Description(l10n.T("Crop videos to 1080x1920 with a caption and export them as MP4.")),
		kong.UsageOnError(),
		kong.ExplicitGroups([]kong.Group{
			{Key: "caption", Title: l10n.T("Caption")},
			{Key: "engine", Title: l10n.T("Codec engine")},
			{Key: "debug", Title: l10n.T("Debug")},
			{Key: "logging", Title: l10n.T("Logging")},
		}),
		helpVars(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the export command.
func (cmd *ExportCmd) Run() error {
	cfg, err := loadConfig(cmd.Config, cmd.StyleFlags, cmd.EngineFlags, cmd.LogFlags)
	if err != nil {
		return err
	}
	if cmd.Output != "" {
		cfg.OutputDir = cmd.Output
	}
	if cmd.Debug {
		cfg.Debug = true
	}
	if cmd.DebugDir != "" {
		cfg.DebugDir = cmd.DebugDir
	}

	log := newLogger(cfg, cmd.Quiet)

	ctx, cancel := signalContext(log)
	defer cancel()

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	engines := engine.NewManager(ffmpegengine.NewLoader(cfg.ToLoaderConfig(), log), log)
	defer engines.Close()

	// Export waits for the engine like the upload screen does.
	log.Info("Loading codec engine...")
	ffmpegPath, ffprobePath, err := enginePaths(ctx, engines)
	if err != nil {
		return err
	}

	opener := ffmpegsource.NewOpener(ffmpegPath, ffprobePath, log)
	recorder := ffmpegrecorder.New(ffmpegPath, log)

	// Create stages
	captureStage := capture.NewStage(recorder, sink, log)
	transcodeStage := transcode.NewStage(engines, log)

	exporter := orchestrator.New(captureStage, transcodeStage, nil, fs, log)

	ctrl := session.New(opener, engines, exporter, renderer, sink, log, cfg.ToSessionOptions())
	ctrl.Start(ctx)
	defer ctrl.Close()

	info, err := ctrl.Upload(ctx, cmd.Input)
	if err != nil {
		return err
	}
	log.Info("Loaded %s (%dx%d, %s)", info.Path, info.Width, info.Height, info.Duration.Round(time.Millisecond))

	last := -1
	ctrl.Subscribe(func(state pipeline.ProcessingState) {
		if state.Stage == pipeline.StageTranscoding && state.Progress != last {
			last = state.Progress
			log.Info("Converting: %d%%", state.DisplayProgress())
		}
	})

	download, err := ctrl.Export(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		if state := ctrl.State(); state.ErrorMessage != "" {
			log.Debug("Export failed: %v", err)
			return errors.New(state.ErrorMessage)
		}
		return err
	}

	log.Info("Done! The original-quality MP4 video is ready.")
	log.Info("Output saved to %s", download.Path)

	if cmd.Summary != "" {
		s := buildSummary(download.ID, cfg.Caption, download.Result)
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(func(key string) string { return l10n.T(key) }),
			summarizer.WithVersion(version),
		), fs)
		if err := w.Write(cmd.Summary, s); err != nil {
			log.Warn("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", cmd.Summary)
		}
	}
	return nil
}

// Run executes the preview command.
func (cmd *PreviewCmd) Run() error {
	cfg, err := loadConfig(cmd.Config, cmd.StyleFlags, cmd.EngineFlags, cmd.LogFlags)
	if err != nil {
		return err
	}
	log := newLogger(cfg, cmd.Quiet)

	ctx, cancel := signalContext(log)
	defer cancel()

	ffmpegPath, err := ffmpegbin.Find(ffmpegbin.FFmpeg, cfg.FFmpegPath)
	if err != nil {
		return err
	}
	ffprobePath, err := findProbe(cfg.FFprobePath, ffmpegPath)
	if err != nil {
		return err
	}

	source, err := ffmpegsource.NewOpener(ffmpegPath, ffprobePath, log).Open(ctx, cmd.Input)
	if err != nil {
		return err
	}
	defer source.Close()

	frame, err := frameAt(ctx, source, cmd.At)
	if err != nil {
		return err
	}

	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	stage := composite.NewStage(renderer, nullsink.New(), log, runtime.NumCPU())

	result, err := stage.Execute(ctx, pipeline.CompositeInput{
		Frames: []image.Image{frame},
		Config: cfg.Caption,
	})
	if err != nil {
		return err
	}

	data, err := renderer.EncodeImage(result.Frames[0].Image, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := fs.WriteFile(cmd.Output, data); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}

	log.Info("Preview saved to %s", cmd.Output)
	return nil
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mime, err := ffmpegsource.DetectType(cmd.Input)
	if err != nil {
		return err
	}

	path, err := ffmpegbin.Find(ffmpegbin.FFprobe, cmd.FFprobe)
	if err != nil {
		return err
	}
	info, err := ffmpegbin.NewProber(path).Probe(ctx, cmd.Input)
	if err != nil {
		return err
	}

	fmt.Println(l10n.F("File: %s", cmd.Input))
	fmt.Println(l10n.F("Type: %s", mime))
	fmt.Println(l10n.F("Resolution: %dx%d", info.Width, info.Height))
	fmt.Println(l10n.F("Frame rate: %.2f fps", info.FPS))
	fmt.Println(l10n.F("Duration: %s", info.Duration.Round(time.Millisecond)))
	fmt.Println(l10n.F("Video codec: %s", info.VideoCodec))
	fmt.Println(l10n.F("Audio tracks: %d", info.AudioTracks))

	if mime == "video/mp4" {
		f, err := os.Open(cmd.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		report, err := mp4probe.Inspect(f)
		if err != nil {
			fmt.Println(l10n.F("MP4 boxes: %s", err))
			return nil
		}
		fmt.Println(l10n.F("MP4 tracks: %d (video=%s audio=%s, fragmented=%t)",
			report.Tracks, report.VideoCodec, report.AudioCodec, report.Fragmented))
		if report.IsDeliveryFormat() {
			fmt.Println(l10n.T("Ready for delivery: H.264 with AAC"))
		}
	}
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("vinacrop (Go) version %s", version))
	return nil
}

// loadConfig reads the optional config file and applies CLI overrides.
func loadConfig(path string, style StyleFlags, eng EngineFlags, logs LogFlags) (config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}

	if style.Text != nil {
		cfg.Caption.TextOverlay = *style.Text
	}
	if style.FontSize != nil {
		cfg.Caption.FontSize = *style.FontSize
	}
	if style.FontColor != nil {
		cfg.Caption.FontColor = *style.FontColor
	}
	if style.BgColor != nil {
		cfg.Caption.BackgroundColor = *style.BgColor
	}
	if style.BgOpacity != nil {
		cfg.Caption.BackgroundOpacity = *style.BgOpacity
	}

	if eng.FFmpeg != "" {
		cfg.FFmpegPath = eng.FFmpeg
	}
	if eng.FFprobe != "" {
		cfg.FFprobePath = eng.FFprobe
	}
	if eng.BundleURL != "" {
		cfg.BundleURL = eng.BundleURL
	}
	if logs.LogLevel != "" {
		cfg.LogLevel = logs.LogLevel
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, quiet bool) ports.Logger {
	if quiet || cfg.LogLevel == "quiet" {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// enginePaths loads the engine and returns the executables it resolved,
// so playback and recording use the same ffmpeg as the transcode.
func enginePaths(ctx context.Context, engines *engine.Manager) (string, string, error) {
	eng, err := engines.Get(ctx)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", l10n.T(session.MsgEngineNotReady), err)
	}
	if e, ok := eng.(*ffmpegengine.Engine); ok && e.FFprobePath() != "" {
		return e.FFmpegPath(), e.FFprobePath(), nil
	}
	ffmpegPath, err := ffmpegbin.Find(ffmpegbin.FFmpeg, "")
	if err != nil {
		return "", "", err
	}
	ffprobePath, err := findProbe("", ffmpegPath)
	return ffmpegPath, ffprobePath, err
}

func findProbe(custom, ffmpegPath string) (string, error) {
	if custom != "" {
		return ffmpegbin.Find(ffmpegbin.FFprobe, custom)
	}
	return ffmpegbin.FindSibling(ffmpegbin.FFprobe, ffmpegPath)
}

// frameAt plays source until position at and returns the frame shown there.
func frameAt(ctx context.Context, source ports.MediaSource, at time.Duration) (image.Image, error) {
	if err := source.Play(ctx); err != nil {
		return nil, fmt.Errorf("play: %w", err)
	}
	defer source.Pause()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if frame := source.CurrentFrame(); frame != nil && source.Position() >= at {
			return frame, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-source.Ended():
			if frame := source.CurrentFrame(); frame != nil {
				return frame, nil
			}
			return nil, errors.New(l10n.T("No frame could be decoded"))
		case <-ticker.C:
		}
	}
}

// buildSummary maps an export result to a summary.
func buildSummary(id string, caption pipeline.VideoConfig, r orchestrator.RunResult) *summarizer.Summary {
	output := summarizer.OutputInfo{
		Path:         r.OutputPath,
		FileSize:     r.FileSize,
		InspectError: r.InspectError,
	}
	if r.Report != nil {
		output.VideoCodec = string(r.Report.VideoCodec)
		if r.Report.HasAudio() {
			output.AudioCodec = string(r.Report.AudioCodec)
		}
		output.Width = r.Report.Width
		output.Height = r.Report.Height
	}

	return summarizer.NewBuilder().
		WithExportID(id).
		WithSource(summarizer.SourceInfo{
			Path:        r.Source.Path,
			Width:       r.Source.Width,
			Height:      r.Source.Height,
			FPS:         r.Source.FPS,
			Duration:    r.Source.Duration,
			VideoCodec:  r.Source.VideoCodec,
			AudioTracks: r.Source.AudioTracks,
		}).
		WithCaption(summarizer.CaptionInfo{
			Text:              caption.TextOverlay,
			FontSize:          caption.FontSize,
			FontColor:         caption.FontColor,
			BackgroundColor:   caption.BackgroundColor,
			BackgroundOpacity: caption.BackgroundOpacity,
		}).
		WithRecording(summarizer.RecordingInfo{
			MimeType:      r.Capture.MimeType,
			Frames:        r.Capture.Frames,
			Segments:      r.Capture.Segments,
			Bytes:         len(r.Capture.Container),
			AudioAttached: r.Capture.AudioAttached,
		}).
		WithOutput(output).
		WithTiming(summarizer.TimingInfo{
			Recording: r.Capture.Duration,
			Transcode: r.TranscodeDuration,
			Write:     r.WriteDuration,
		}).
		Build()
}

// Package session owns the editing session: the loaded source, the caption
// style, the live preview and the export state machine.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"

	"github.com/user/vinacrop/pkg/orchestrator"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/renderloop"
	"github.com/user/vinacrop/pkg/stages/capture"
	"github.com/user/vinacrop/pkg/surface"
)

var (
	// ErrExportUnavailable is returned when Export is triggered without a
	// loaded source, before the engine is ready, or while an export runs.
	ErrExportUnavailable = errors.New("export unavailable")

	// ErrBusy is returned for uploads and playback control refused while an
	// export runs.
	ErrBusy = errors.New("export in progress")

	// ErrNoSource is returned by playback controls before an upload.
	ErrNoSource = errors.New("no source loaded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// User-facing messages. They are lexicon keys translated at use.
const (
	MsgDefaultCaption  = "Enter your text here..."
	MsgSmartCrop       = "Smart crop applied: the subject is centered automatically!"
	MsgEngineNotReady  = "The video processing system is not ready yet. Please wait a moment."
	MsgCaptureFailed   = "Could not start recording."
	MsgRecordingFailed = "Recording failed."
	MsgTranscodeFailed = "Failed to convert to MP4."
	MsgSaveFailed      = "Failed to save the video."
)

// Exporter runs one export.
type Exporter interface {
	Run(ctx context.Context, job orchestrator.Job) (orchestrator.RunResult, error)
}

// Options configures a Controller.
type Options struct {
	// OutputDir receives vina-crop-hq-<ms>.mp4. OutputPath, when set, is used instead.
	OutputDir  string
	OutputPath string

	// CompletedHold is how long the completed stage is shown before idle.
	CompletedHold time.Duration

	// RenderInterval is the preview repaint interval.
	RenderInterval time.Duration

	// Config is the initial caption style.
	Config pipeline.VideoConfig

	// Now is the clock used for download names.
	Now func() time.Time
}

// DefaultOptions returns the options a new session starts with.
func DefaultOptions() Options {
	return Options{
		OutputDir:      ".",
		CompletedHold:  3 * time.Second,
		RenderInterval: renderloop.DefaultInterval,
		Config:         pipeline.DefaultVideoConfig(l10n.T(MsgDefaultCaption)),
		Now:            time.Now,
	}
}

// Download is the record of one saved artifact.
type Download struct {
	ID     string
	Path   string
	Size   int64
	Result orchestrator.RunResult
}

// FileName returns the download name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("vina-crop-hq-%d.mp4", t.UnixMilli())
}

// Controller drives upload, preview, configuration, export and download.
type Controller struct {
	opener   ports.MediaOpener
	engines  ports.EngineProvider
	exporter Exporter
	sink     ports.DebugSink
	logger   ports.Logger
	validate *validator.Validate
	opts     Options

	surface *surface.Surface
	loop    *renderloop.Loop

	cfgMu sync.RWMutex
	cfg   pipeline.VideoConfig

	// notifyMu serializes state changes with their delivery so subscribers
	// see changes in order. Subscribers must not change state.
	notifyMu sync.Mutex

	mu          sync.Mutex
	source      ports.MediaSource
	state       pipeline.ProcessingState
	history     []StateChange
	subscribers []func(pipeline.ProcessingState)
	holdTimer   *time.Timer
	closed      bool
}

// New creates a Controller. The render loop starts with Start.
func New(
	opener ports.MediaOpener,
	engines ports.EngineProvider,
	exporter Exporter,
	renderer ports.Renderer,
	sink ports.DebugSink,
	logger ports.Logger,
	opts Options,
) *Controller {
	defaults := DefaultOptions()
	if opts.CompletedHold <= 0 {
		opts.CompletedHold = defaults.CompletedHold
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = defaults.OutputDir
	}
	if opts.Config == (pipeline.VideoConfig{}) {
		opts.Config = defaults.Config
	}

	c := &Controller{
		opener:   opener,
		engines:  engines,
		exporter: exporter,
		sink:     sink,
		logger:   logger.WithComponent("session"),
		validate: validator.New(),
		opts:     opts,
		surface:  surface.NewTarget(),
		cfg:      opts.Config,
		state:    pipeline.ProcessingState{Stage: pipeline.StageIdle},
	}
	c.history = []StateChange{{At: opts.Now(), State: c.state}}

	painter := renderloop.NewPainter(c.surface, renderer, c.currentFrame, c.Config)
	c.loop = renderloop.New(opts.RenderInterval, painter.Paint, logger)
	return c
}

// Start starts the render loop and begins loading the engine in the background.
func (c *Controller) Start(ctx context.Context) {
	c.loop.Start(ctx)
	if p, ok := c.engines.(interface{ Preload(context.Context) }); ok {
		p.Preload(ctx)
	}
}

// LoadEngine blocks until the engine is ready.
func (c *Controller) LoadEngine(ctx context.Context) error {
	if _, err := c.engines.Get(ctx); err != nil {
		return fmt.Errorf("load engine: %w", err)
	}
	return nil
}

// EngineReady reports whether the engine has finished loading.
func (c *Controller) EngineReady() bool {
	return c.engines.Loaded()
}

// Surface returns the preview surface.
func (c *Controller) Surface() *surface.Surface {
	return c.surface
}

// Upload opens path as the new source, replacing and closing the previous
// one, and resets the state to idle. It is refused while an export runs.
func (c *Controller) Upload(ctx context.Context, path string) (ports.SourceInfo, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ports.SourceInfo{}, ErrClosed
	}
	if c.state.IsProcessing() {
		c.mu.Unlock()
		return ports.SourceInfo{}, ErrBusy
	}
	c.mu.Unlock()

	source, err := c.opener.Open(ctx, path)
	if err != nil {
		c.logger.Error("Failed to open %s: %v", path, err)
		return ports.SourceInfo{}, fmt.Errorf("open source: %w", err)
	}

	c.notifyMu.Lock()
	c.mu.Lock()
	if c.closed || c.state.IsProcessing() {
		closed := c.closed
		c.mu.Unlock()
		c.notifyMu.Unlock()
		source.Close()
		if closed {
			return ports.SourceInfo{}, ErrClosed
		}
		return ports.SourceInfo{}, ErrBusy
	}

	previous := c.source
	c.source = source
	c.stopHoldLocked()

	var subs []func(pipeline.ProcessingState)
	if c.state.Stage != pipeline.StageIdle {
		subs = c.commitLocked(pipeline.ProcessingState{Stage: pipeline.StageIdle})
	}
	state := c.state
	c.mu.Unlock()

	c.deliver(subs, state)
	c.notifyMu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			c.logger.Debug("Closing previous source: %v", err)
		}
	}

	info := source.Info()
	c.logger.Info("Loaded %s: %dx%d, %v", info.Path, info.Width, info.Height, info.Duration)
	return info, nil
}

// Source returns the loaded source, or nil.
func (c *Controller) Source() ports.MediaSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Config returns the current caption style.
func (c *Controller) Config() pipeline.VideoConfig {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// SetConfig replaces the caption style after validating it.
func (c *Controller) SetConfig(cfg pipeline.VideoConfig) error {
	if err := c.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid caption config: %w", err)
	}
	c.cfgMu.Lock()
	c.cfg = cfg
	c.cfgMu.Unlock()
	return nil
}

// UpdateConfig applies fn to a copy of the caption style and stores the
// result if it validates.
func (c *Controller) UpdateConfig(fn func(cfg *pipeline.VideoConfig)) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()

	next := c.cfg
	fn(&next)
	if err := c.validate.Struct(next); err != nil {
		return fmt.Errorf("invalid caption config: %w", err)
	}
	c.cfg = next
	return nil
}

// Play starts preview playback.
func (c *Controller) Play(ctx context.Context) error {
	source, err := c.playbackSource()
	if err != nil {
		return err
	}
	return source.Play(ctx)
}

// Pause pauses preview playback.
func (c *Controller) Pause() error {
	source, err := c.playbackSource()
	if err != nil {
		return err
	}
	source.Pause()
	return nil
}

// TogglePlayback pauses a playing source and plays a paused one.
// It returns whether the source is playing afterwards.
func (c *Controller) TogglePlayback(ctx context.Context) (bool, error) {
	source, err := c.playbackSource()
	if err != nil {
		return false, err
	}
	if source.Playing() {
		source.Pause()
		return false, nil
	}
	if err := source.Play(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// playbackSource returns the source for preview control. The capture
// pipeline owns playback while an export runs.
func (c *Controller) playbackSource() (ports.MediaSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsProcessing() {
		return nil, ErrBusy
	}
	if c.source == nil {
		return nil, ErrNoSource
	}
	return c.source, nil
}

// SmartCrop performs no analysis. It returns the notice shown to the user.
func (c *Controller) SmartCrop() string {
	msg := l10n.T(MsgSmartCrop)
	c.logger.Info(MsgSmartCrop)
	return msg
}

// CanExport reports whether Export would start.
func (c *Controller) CanExport() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canExportLocked()
}

func (c *Controller) canExportLocked() bool {
	if c.closed || c.source == nil || !c.engines.Loaded() {
		return false
	}
	return c.state.Stage == pipeline.StageIdle || c.state.Stage == pipeline.StageError
}

// Export records the composed preview while the source plays from the
// start, converts it to MP4 and saves it. When export is not possible it
// returns ErrExportUnavailable and leaves the state untouched. Every other
// failure moves the state to error and is also returned.
func (c *Controller) Export(ctx context.Context) (Download, error) {
	var source ports.MediaSource
	err := c.transition(pipeline.ProcessingState{Stage: pipeline.StageRecording}, func() error {
		if !c.canExportLocked() {
			return ErrExportUnavailable
		}
		source = c.source
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrExportUnavailable) && !c.engines.Loaded() {
			c.logger.Warn(MsgEngineNotReady)
		}
		return Download{}, err
	}

	id := uuid.NewString()
	path := c.opts.OutputPath
	if path == "" {
		path = filepath.Join(c.opts.OutputDir, FileName(c.opts.Now()))
	}
	c.logger.Debug("Export %s started", id)

	result, err := c.exporter.Run(ctx, orchestrator.Job{
		Source:     source,
		Surface:    c.surface,
		OutputPath: path,
		OnTranscoding: func() {
			c.setState(pipeline.ProcessingState{Stage: pipeline.StageTranscoding})
		},
		OnProgress: func(percent int) {
			c.setState(pipeline.ProcessingState{Stage: pipeline.StageTranscoding, Progress: percent})
		},
	})
	if err != nil {
		c.setState(pipeline.ProcessingState{Stage: pipeline.StageError, ErrorMessage: errorMessage(err)})
		c.saveStateLog()
		return Download{}, fmt.Errorf("export: %w", err)
	}

	c.setState(pipeline.ProcessingState{Stage: pipeline.StageCompleted, Progress: 100})
	c.scheduleIdle()
	c.saveStateLog()

	return Download{ID: id, Path: path, Size: result.FileSize, Result: result}, nil
}

// errorMessage maps an export failure to the message shown to the user.
func errorMessage(err error) string {
	var stageErr *orchestrator.StageError
	if !errors.As(err, &stageErr) {
		return l10n.T(MsgRecordingFailed)
	}
	switch stageErr.Stage {
	case pipeline.StageRecording:
		if errors.Is(err, capture.ErrCaptureStart) {
			return l10n.T(MsgCaptureFailed)
		}
		return l10n.T(MsgRecordingFailed)
	case pipeline.StageTranscoding:
		return l10n.T(MsgTranscodeFailed)
	default:
		return l10n.T(MsgSaveFailed)
	}
}

// Snapshot returns a copy of the current preview frame.
func (c *Controller) Snapshot() *image.RGBA {
	return c.surface.Snapshot()
}

// State returns the current processing state.
func (c *Controller) State() pipeline.ProcessingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns every state the session has been in.
func (c *Controller) History() []StateChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StateChange, len(c.history))
	copy(out, c.history)
	return out
}

// Subscribe registers fn to receive every state change in order.
func (c *Controller) Subscribe(fn func(pipeline.ProcessingState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Close stops the render loop and the hold timer and closes the source.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopHoldLocked()
	source := c.source
	c.source = nil
	c.mu.Unlock()

	c.loop.Stop()

	if source != nil {
		if err := source.Close(); err != nil {
			return fmt.Errorf("close source: %w", err)
		}
	}
	return nil
}

func (c *Controller) currentFrame() image.Image {
	source := c.Source()
	if source == nil {
		return nil
	}
	return source.CurrentFrame()
}

// transition moves to next if the table allows it and check passes.
// check runs under the state lock.
func (c *Controller) transition(next pipeline.ProcessingState, check func() error) error {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if check != nil {
		if err := check(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	if err := checkTransition(c.state.Stage, next.Stage); err != nil {
		c.mu.Unlock()
		return err
	}
	subs := c.commitLocked(next)
	c.mu.Unlock()

	c.deliver(subs, next)
	return nil
}

// setState is transition without a check; a rejected change is logged.
func (c *Controller) setState(next pipeline.ProcessingState) {
	if err := c.transition(next, nil); err != nil {
		c.logger.Debug("State change ignored: %v", err)
	}
}

func (c *Controller) commitLocked(next pipeline.ProcessingState) []func(pipeline.ProcessingState) {
	if next.Stage != c.state.Stage {
		c.logger.Info("Stage: %s -> %s", c.state.Stage, next.Stage)
	}
	c.state = next
	c.history = append(c.history, StateChange{At: c.opts.Now(), State: next})

	subs := make([]func(pipeline.ProcessingState), len(c.subscribers))
	copy(subs, c.subscribers)
	return subs
}

func (c *Controller) deliver(subs []func(pipeline.ProcessingState), state pipeline.ProcessingState) {
	for _, fn := range subs {
		fn(state)
	}
}

func (c *Controller) scheduleIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopHoldLocked()
	if c.closed {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(c.opts.CompletedHold, func() {
		c.transition(pipeline.ProcessingState{Stage: pipeline.StageIdle}, func() error {
			// A newer upload or timer may have taken over.
			if c.holdTimer != timer || c.state.Stage != pipeline.StageCompleted {
				return ErrInvalidTransition
			}
			c.holdTimer = nil
			return nil
		})
	})
	c.holdTimer = timer
}

func (c *Controller) stopHoldLocked() {
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
}

func (c *Controller) saveStateLog() {
	if !c.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(c.History(), "", "  ")
	if err != nil {
		c.logger.Warn("Failed to encode state log: %v", err)
		return
	}
	if err := c.sink.SaveStateLog(data); err != nil {
		c.logger.Warn("Failed to save state log: %v", err)
	}
}

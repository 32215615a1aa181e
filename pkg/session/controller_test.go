package session

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ideamans/go-l10n"

	"github.com/user/vinacrop/pkg/adapters/logger"
	"github.com/user/vinacrop/pkg/engine"
	"github.com/user/vinacrop/pkg/mocks"
	"github.com/user/vinacrop/pkg/orchestrator"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/stages/capture"
	"github.com/user/vinacrop/pkg/stages/transcode"
)

type fixture struct {
	ctrl     *Controller
	source   *mocks.MediaSource
	recorder *mocks.Recorder
	codec    *mocks.CodecEngine
	loader   *mocks.EngineLoader
	fs       *mocks.FileSystem
	sink     *mocks.DebugSink
}

func newFixture(t *testing.T, info ports.SourceInfo) *fixture {
	t.Helper()

	f := &fixture{
		recorder: &mocks.Recorder{},
		codec:    mocks.NewCodecEngine(),
		fs:       mocks.NewFileSystem(),
		sink:     mocks.NewDebugSink(true),
	}
	f.source = mocks.NewMediaSource(info)
	f.source.AutoEndAfter = 40 * time.Millisecond
	f.loader = &mocks.EngineLoader{
		LoadFunc: func(ctx context.Context) (ports.CodecEngine, error) { return f.codec, nil },
	}

	log := logger.NewNoop()
	engines := engine.NewManager(f.loader, log)
	exporter := orchestrator.New(
		capture.NewStage(f.recorder, f.sink, log),
		transcode.NewStage(engines, log),
		nil,
		f.fs,
		log,
	)
	opener := &mocks.MediaOpener{
		OpenFunc: func(ctx context.Context, path string) (ports.MediaSource, error) { return f.source, nil },
	}

	opts := DefaultOptions()
	opts.OutputDir = "out"
	opts.CompletedHold = 30 * time.Millisecond
	f.ctrl = New(opener, engines, exporter, &mocks.Renderer{}, f.sink, log, opts)

	t.Cleanup(func() { f.ctrl.Close() })
	return f
}

// stateRecorder collects delivered states.
type stateRecorder struct {
	mu     sync.Mutex
	states []pipeline.ProcessingState
}

func (r *stateRecorder) record(s pipeline.ProcessingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

// stages returns the delivered stages with consecutive duplicates collapsed.
func (r *stateRecorder) stages() []pipeline.ProcessingStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pipeline.ProcessingStage
	for _, s := range r.states {
		if len(out) == 0 || out[len(out)-1] != s.Stage {
			out = append(out, s.Stage)
		}
	}
	return out
}

func waitForStage(t *testing.T, c *Controller, stage pipeline.ProcessingStage) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State().Stage != stage {
		if time.Now().After(deadline) {
			t.Fatalf("stage %s not reached, at %s", stage, c.State().Stage)
		}
		time.Sleep(time.Millisecond)
	}
}

func sameStages(a, b []pipeline.ProcessingStage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestController_ExportEndToEnd(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4", Width: 1280, Height: 720, Duration: 5 * time.Second, AudioTracks: 1})
	ctx := context.Background()

	rec := &stateRecorder{}
	f.ctrl.Subscribe(rec.record)
	f.ctrl.Start(ctx)

	if _, err := f.ctrl.Upload(ctx, "clip.mp4"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := f.ctrl.LoadEngine(ctx); err != nil {
		t.Fatalf("LoadEngine failed: %v", err)
	}
	if err := f.ctrl.UpdateConfig(func(cfg *pipeline.VideoConfig) {
		cfg.TextOverlay = "Hello World"
		cfg.FontSize = 48
	}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if !f.ctrl.CanExport() {
		t.Fatal("expected export to be possible")
	}

	dl, err := f.ctrl.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if ok, _ := regexp.MatchString(`^vina-crop-hq-\d+\.mp4$`, filepath.Base(dl.Path)); !ok {
		t.Errorf("unexpected download name %s", dl.Path)
	}
	if filepath.Dir(dl.Path) != "out" {
		t.Errorf("expected download in output dir, got %s", dl.Path)
	}
	data, ok := f.fs.File(dl.Path)
	if !ok || len(data) == 0 || dl.Size != int64(len(data)) {
		t.Errorf("expected non-empty artifact at %s", dl.Path)
	}
	if dl.ID == "" {
		t.Error("expected an export id")
	}
	if writes := f.fs.Writes(); len(writes) != 1 || writes[0] != dl.Path {
		t.Errorf("expected exactly one write of the artifact, got %v", writes)
	}

	state := f.ctrl.State()
	if state.Stage != pipeline.StageCompleted || state.Progress != 100 || state.IsProcessing() {
		t.Errorf("expected completed at 100%%, got %+v", state)
	}

	waitForStage(t, f.ctrl, pipeline.StageIdle)

	want := []pipeline.ProcessingStage{
		pipeline.StageRecording,
		pipeline.StageTranscoding,
		pipeline.StageCompleted,
		pipeline.StageIdle,
	}
	if got := rec.stages(); !sameStages(got, want) {
		t.Errorf("expected stages %v, got %v", want, got)
	}

	if f.recorder.Options.Audio == nil {
		t.Error("expected the audio track to be recorded")
	}
	if f.codec.Has(transcode.InputName) || f.codec.Has(transcode.OutputName) {
		t.Error("expected engine working storage to be cleaned")
	}
	if len(f.sink.StateLog) == 0 {
		t.Error("expected state log in debug sink")
	}
}

func TestController_ExportVideoOnly(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "silent.mp4", Width: 1280, Height: 720})
	ctx := context.Background()

	f.ctrl.Start(ctx)
	f.ctrl.Upload(ctx, "silent.mp4")
	f.ctrl.LoadEngine(ctx)

	if _, err := f.ctrl.Export(ctx); err != nil {
		t.Fatalf("video-only export should succeed: %v", err)
	}
	if f.ctrl.State().Stage == pipeline.StageError {
		t.Error("missing audio must not cause the error stage")
	}
	if f.recorder.Options.Audio != nil {
		t.Error("expected no audio input")
	}
}

func TestController_ExportWithoutEngine(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4"})
	ctx := context.Background()

	rec := &stateRecorder{}
	f.ctrl.Subscribe(rec.record)
	f.ctrl.Upload(ctx, "clip.mp4")

	if f.ctrl.CanExport() {
		t.Error("export must be unavailable before the engine loads")
	}
	if _, err := f.ctrl.Export(ctx); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
	if f.ctrl.State().Stage != pipeline.StageIdle {
		t.Errorf("expected idle, got %s", f.ctrl.State().Stage)
	}
	if len(rec.stages()) != 0 {
		t.Errorf("expected no state change, got %v", rec.stages())
	}
	if f.source.PlayCalls != 0 {
		t.Error("source must not play")
	}
}

func TestController_ExportEngineFetchFails(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4"})
	f.loader.LoadFunc = func(ctx context.Context) (ports.CodecEngine, error) {
		return nil, errors.New("fetch failed")
	}
	ctx := context.Background()
	f.ctrl.Upload(ctx, "clip.mp4")

	if err := f.ctrl.LoadEngine(ctx); !errors.Is(err, engine.ErrEngineInit) {
		t.Fatalf("expected ErrEngineInit, got %v", err)
	}
	if f.ctrl.EngineReady() || f.ctrl.CanExport() {
		t.Error("export must stay disabled after a failed load")
	}
	if _, err := f.ctrl.Export(ctx); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("expected ErrExportUnavailable, got %v", err)
	}
	if f.ctrl.State().Stage != pipeline.StageIdle {
		t.Errorf("expected idle, got %s", f.ctrl.State().Stage)
	}
}

func TestController_ExportWithoutSource(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4"})
	f.ctrl.LoadEngine(context.Background())

	if _, err := f.ctrl.Export(context.Background()); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("expected ErrExportUnavailable, got %v", err)
	}
}

func TestController_TranscodeFailure(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4", AudioTracks: 1})
	f.codec.ExecFunc = func(ctx context.Context, args []string, onProgress ports.ProgressFunc) error {
		return errors.New("encoder crashed: internal detail")
	}
	ctx := context.Background()
	f.ctrl.Start(ctx)
	f.ctrl.Upload(ctx, "clip.mp4")
	f.ctrl.LoadEngine(ctx)

	_, err := f.ctrl.Export(ctx)
	if !errors.Is(err, transcode.ErrTranscodeFailed) {
		t.Fatalf("expected ErrTranscodeFailed, got %v", err)
	}

	state := f.ctrl.State()
	if state.Stage != pipeline.StageError || state.IsProcessing() {
		t.Errorf("expected error stage, got %+v", state)
	}
	if state.ErrorMessage != l10n.T(MsgTranscodeFailed) {
		t.Errorf("expected fixed message, got %q", state.ErrorMessage)
	}
	if f.codec.Has(transcode.InputName) {
		t.Error("expected input cleaned up after failure")
	}

	// Export can be retried from the error stage.
	f.codec.ExecFunc = nil
	f.source.AutoEndAfter = 10 * time.Millisecond
	if _, err := f.ctrl.Export(ctx); err != nil {
		t.Errorf("expected retry to succeed, got %v", err)
	}
}

func TestController_CaptureStartFailure(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4"})
	f.recorder.Supported = map[string]bool{}
	ctx := context.Background()
	f.ctrl.Upload(ctx, "clip.mp4")
	f.ctrl.LoadEngine(ctx)

	_, err := f.ctrl.Export(ctx)
	if !errors.Is(err, capture.ErrCaptureStart) {
		t.Fatalf("expected ErrCaptureStart, got %v", err)
	}
	state := f.ctrl.State()
	if state.Stage != pipeline.StageError || state.IsProcessing() {
		t.Errorf("expected error stage, got %+v", state)
	}
	if state.ErrorMessage != l10n.T(MsgCaptureFailed) {
		t.Errorf("expected capture message, got %q", state.ErrorMessage)
	}
}

// blockingExporter holds Run until released.
type blockingExporter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExporter) Run(ctx context.Context, job orchestrator.Job) (orchestrator.RunResult, error) {
	close(b.started)
	<-b.release
	job.OnTranscoding()
	return orchestrator.RunResult{OutputPath: job.OutputPath}, nil
}

func TestController_RefusesWhileProcessing(t *testing.T) {
	exporter := &blockingExporter{started: make(chan struct{}), release: make(chan struct{})}
	log := logger.NewNoop()
	engines := engine.NewManager(&mocks.EngineLoader{}, log)
	ctrl := New(&mocks.MediaOpener{}, engines, exporter, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})
	defer ctrl.Close()

	ctx := context.Background()
	ctrl.Upload(ctx, "a.mp4")
	ctrl.LoadEngine(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Export(ctx)
		done <- err
	}()
	<-exporter.started

	if !ctrl.State().IsProcessing() {
		t.Error("expected processing during export")
	}
	if _, err := ctrl.Upload(ctx, "b.mp4"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for upload during export, got %v", err)
	}
	if _, err := ctrl.Export(ctx); !errors.Is(err, ErrExportUnavailable) {
		t.Errorf("expected ErrExportUnavailable for a second export, got %v", err)
	}
	if err := ctrl.Pause(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for pause during export, got %v", err)
	}
	if err := ctrl.Play(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for play during export, got %v", err)
	}
	if _, err := ctrl.TogglePlayback(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for toggle during export, got %v", err)
	}

	close(exporter.release)
	if err := <-done; err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if ctrl.State().Stage != pipeline.StageCompleted {
		t.Errorf("expected completed, got %s", ctrl.State().Stage)
	}
}

func TestController_UploadReplacesSource(t *testing.T) {
	first := mocks.NewMediaSource(ports.SourceInfo{Path: "a.mp4"})
	second := mocks.NewMediaSource(ports.SourceInfo{Path: "b.mp4"})
	opener := &mocks.MediaOpener{
		OpenFunc: func(ctx context.Context, path string) (ports.MediaSource, error) {
			if path == "a.mp4" {
				return first, nil
			}
			return second, nil
		},
	}
	log := logger.NewNoop()
	ctrl := New(opener, engine.NewManager(&mocks.EngineLoader{}, log), nil, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})

	ctx := context.Background()
	if _, err := ctrl.Upload(ctx, "a.mp4"); err != nil {
		t.Fatal(err)
	}
	info, err := ctrl.Upload(ctx, "b.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if info.Path != "b.mp4" || ctrl.Source() != second {
		t.Errorf("expected second source, got %+v", info)
	}
	if !first.Closed() {
		t.Error("expected previous source closed")
	}

	ctrl.Close()
	if !second.Closed() {
		t.Error("expected source closed on Close")
	}
	if _, err := ctrl.Upload(ctx, "a.mp4"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestController_UploadOpenFails(t *testing.T) {
	openErr := errors.New("not a video")
	opener := &mocks.MediaOpener{
		OpenFunc: func(ctx context.Context, path string) (ports.MediaSource, error) { return nil, openErr },
	}
	log := logger.NewNoop()
	ctrl := New(opener, engine.NewManager(&mocks.EngineLoader{}, log), nil, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})
	defer ctrl.Close()

	if _, err := ctrl.Upload(context.Background(), "notes.txt"); !errors.Is(err, openErr) {
		t.Errorf("expected open error, got %v", err)
	}
	if ctrl.Source() != nil {
		t.Error("expected no source")
	}
}

func TestController_Config(t *testing.T) {
	log := logger.NewNoop()
	ctrl := New(&mocks.MediaOpener{}, engine.NewManager(&mocks.EngineLoader{}, log), nil, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})
	defer ctrl.Close()

	cfg := ctrl.Config()
	if cfg.TextOverlay != l10n.T(MsgDefaultCaption) || cfg.FontSize != 48 {
		t.Errorf("unexpected default config %+v", cfg)
	}

	cfg.FontSize = 120
	cfg.BackgroundOpacity = 1
	if err := ctrl.SetConfig(cfg); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	if err := ctrl.SetConfig(pipeline.VideoConfig{FontSize: 10, FontColor: "#ffffff", BackgroundColor: "#000000"}); err == nil {
		t.Error("expected font size below range to be rejected")
	}
	if err := ctrl.UpdateConfig(func(c *pipeline.VideoConfig) { c.FontColor = "red" }); err == nil {
		t.Error("expected non-hex color to be rejected")
	}
	if err := ctrl.UpdateConfig(func(c *pipeline.VideoConfig) { c.BackgroundOpacity = 1.5 }); err == nil {
		t.Error("expected opacity above 1 to be rejected")
	}
	if got := ctrl.Config(); got.FontSize != 120 || got.FontColor != "#ffffff" {
		t.Errorf("rejected updates must not apply, got %+v", got)
	}
}

func TestController_Playback(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "a.mp4"})
	opener := &mocks.MediaOpener{
		OpenFunc: func(ctx context.Context, path string) (ports.MediaSource, error) { return source, nil },
	}
	log := logger.NewNoop()
	ctrl := New(opener, engine.NewManager(&mocks.EngineLoader{}, log), nil, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})
	defer ctrl.Close()
	ctx := context.Background()

	if _, err := ctrl.TogglePlayback(ctx); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	ctrl.Upload(ctx, "a.mp4")
	if playing, err := ctrl.TogglePlayback(ctx); err != nil || !playing {
		t.Errorf("expected playing, got %v %v", playing, err)
	}
	if playing, _ := ctrl.TogglePlayback(ctx); playing {
		t.Error("expected paused")
	}
	if err := ctrl.Play(ctx); err != nil || !source.Playing() {
		t.Errorf("expected Play to start playback: %v", err)
	}
	if err := ctrl.Pause(); err != nil || source.Playing() {
		t.Errorf("expected Pause to stop playback: %v", err)
	}
	if source.PauseCalls != 2 {
		t.Errorf("expected 2 pauses on the source, got %d", source.PauseCalls)
	}
}

func TestController_SmartCrop(t *testing.T) {
	log := logger.NewNoop()
	ctrl := New(&mocks.MediaOpener{}, engine.NewManager(&mocks.EngineLoader{}, log), nil, &mocks.Renderer{}, mocks.NewDebugSink(false), log, Options{})
	defer ctrl.Close()

	if msg := ctrl.SmartCrop(); msg != l10n.T(MsgSmartCrop) {
		t.Errorf("unexpected notice %q", msg)
	}
	if ctrl.State().Stage != pipeline.StageIdle {
		t.Error("smart crop must not change state")
	}
}

func TestController_SnapshotAndRenderLoop(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4", Width: 1280, Height: 720})
	f.ctrl.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.ctrl.Surface().Frames() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("render loop did not paint")
		}
		time.Sleep(time.Millisecond)
	}

	snap := f.ctrl.Snapshot()
	if b := snap.Bounds(); b.Dx() != pipeline.TargetWidth || b.Dy() != pipeline.TargetHeight {
		t.Errorf("expected 1080x1920 snapshot, got %v", b)
	}

	f.ctrl.Close()
	frames := f.ctrl.Surface().Frames()
	time.Sleep(20 * time.Millisecond)
	if f.ctrl.Surface().Frames() != frames {
		t.Error("expected no paints after Close")
	}
}

func TestController_StateInvariant(t *testing.T) {
	f := newFixture(t, ports.SourceInfo{Path: "clip.mp4", AudioTracks: 1})
	ctx := context.Background()

	var mu sync.Mutex
	var violations []pipeline.ProcessingState
	f.ctrl.Subscribe(func(s pipeline.ProcessingState) {
		processing := s.Stage == pipeline.StageRecording || s.Stage == pipeline.StageTranscoding
		if s.IsProcessing() != processing || s.Progress < 0 || s.Progress > 100 {
			mu.Lock()
			violations = append(violations, s)
			mu.Unlock()
		}
	})

	f.ctrl.Start(ctx)
	f.ctrl.Upload(ctx, "clip.mp4")
	f.ctrl.LoadEngine(ctx)
	f.ctrl.Export(ctx)
	waitForStage(t, f.ctrl, pipeline.StageIdle)

	mu.Lock()
	defer mu.Unlock()
	if len(violations) != 0 {
		t.Errorf("invariant violated: %+v", violations)
	}
	if h := f.ctrl.History(); len(h) < 5 || h[0].State.Stage != pipeline.StageIdle {
		t.Errorf("unexpected history %+v", h)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(time.UnixMilli(1700000000123)); got != "vina-crop-hq-1700000000123.mp4" {
		t.Errorf("unexpected file name %s", got)
	}
}

package capture

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/vinacrop/pkg/adapters/logger"
	"github.com/user/vinacrop/pkg/mocks"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
	"github.com/user/vinacrop/pkg/surface"
)

func newInput(source ports.MediaSource) pipeline.CaptureInput {
	in := pipeline.DefaultCaptureInput(source, surface.New(8, 8))
	in.Size = pipeline.Dimension{Width: 8, Height: 8}
	return in
}

func TestStage_Execute(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4", Width: 1280, Height: 720, AudioTracks: 2})
	source.AutoEndAfter = 100 * time.Millisecond
	recorder := &mocks.Recorder{}

	stage := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop())
	result, err := stage.Execute(context.Background(), newInput(source))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result.Container) != "seg-1seg-2" {
		t.Errorf("expected concatenated segments, got %q", result.Container)
	}
	if result.Segments != 2 {
		t.Errorf("expected 2 segments, got %d", result.Segments)
	}
	if result.MimeType != ports.MimeH264 {
		t.Errorf("expected preferred mime type, got %s", result.MimeType)
	}
	if !result.AudioAttached {
		t.Error("expected audio to be attached")
	}

	opts := recorder.Options
	if opts.Audio == nil || opts.Audio.Path != "clip.mp4" || opts.Audio.Track != 0 {
		t.Errorf("expected first audio track of the source, got %+v", opts.Audio)
	}
	if opts.FPS != 60 || opts.VideoBitsPerSec != 25_000_000 {
		t.Errorf("unexpected recorder options %+v", opts)
	}

	if source.RewindCalls != 1 || source.PlayCalls != 1 || source.Playing() {
		t.Errorf("expected rewind, play and pause; got rewind=%d play=%d playing=%v",
			source.RewindCalls, source.PlayCalls, source.Playing())
	}
	if recorder.StopCalls != 1 {
		t.Errorf("expected recorder stopped once, got %d", recorder.StopCalls)
	}

	// ~6 frames at 60 fps over 100ms; allow for scheduler slack.
	if result.Frames < 3 || result.Frames != recorder.Frames() {
		t.Errorf("expected paced frames, got result=%d recorder=%d", result.Frames, recorder.Frames())
	}
	want := int(result.Duration.Seconds() * 60)
	if result.Frames > want+1 {
		t.Errorf("wrote %d frames for %v, more than elapsed time allows", result.Frames, result.Duration)
	}
}

func TestStage_Execute_NoAudio(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "silent.mp4", Width: 1280, Height: 720})
	source.AutoEndAfter = 30 * time.Millisecond
	recorder := &mocks.Recorder{}

	result, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if err != nil {
		t.Fatalf("video-only capture should succeed: %v", err)
	}
	if result.AudioAttached || recorder.Options.Audio != nil {
		t.Error("expected no audio input")
	}
}

func TestStage_Execute_FallbackMime(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	source.AutoEndAfter = 20 * time.Millisecond
	recorder := &mocks.Recorder{Supported: map[string]bool{ports.MimeWebM: true}}

	result, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MimeType != ports.MimeWebM || recorder.Options.MimeType != ports.MimeWebM {
		t.Errorf("expected fallback to %s, got %s", ports.MimeWebM, result.MimeType)
	}
}

func TestStage_Execute_NoSupportedMime(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	recorder := &mocks.Recorder{Supported: map[string]bool{}}

	_, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if !errors.Is(err, ErrCaptureStart) {
		t.Fatalf("expected ErrCaptureStart, got %v", err)
	}
	if source.PlayCalls != 0 {
		t.Error("source should not play when capture cannot start")
	}
}

func TestStage_Execute_RecorderStartFails(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	startErr := errors.New("no encoder")
	recorder := &mocks.Recorder{StartErr: startErr}

	_, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if !errors.Is(err, ErrCaptureStart) || !errors.Is(err, startErr) {
		t.Fatalf("expected wrapped ErrCaptureStart, got %v", err)
	}
}

func TestStage_Execute_PlayFails(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	source.PlayErr = errors.New("decoder missing")
	recorder := &mocks.Recorder{}

	_, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if !errors.Is(err, ErrCaptureStart) {
		t.Fatalf("expected ErrCaptureStart, got %v", err)
	}
	if recorder.StopCalls != 1 || recorder.Started() {
		t.Error("expected recorder to be stopped after play failure")
	}
}

func TestStage_Execute_WriteFails(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	writeErr := errors.New("broken pipe")
	recorder := &mocks.Recorder{WriteErr: writeErr}

	_, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), newInput(source))
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if source.Playing() {
		t.Error("expected source paused after failure")
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	recorder := &mocks.Recorder{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewStage(recorder, mocks.NewDebugSink(false), logger.NewNoop()).Execute(ctx, newInput(source))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if recorder.StopCalls != 1 {
		t.Error("expected recorder to be stopped on cancel")
	}
}

func TestStage_Execute_DebugSink(t *testing.T) {
	source := mocks.NewMediaSource(ports.SourceInfo{Path: "clip.mp4"})
	source.AutoEndAfter = 50 * time.Millisecond
	sink := mocks.NewDebugSink(true)

	_, err := NewStage(&mocks.Recorder{}, sink, logger.NewNoop()).Execute(context.Background(), newInput(source))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(sink.Recording) != "seg-1seg-2" || sink.RecordingExt != "webm" {
		t.Errorf("expected recording saved, got %q (%s)", sink.Recording, sink.RecordingExt)
	}
	if sink.FrameCount() == 0 {
		t.Error("expected at least one composed frame saved")
	}
	for _, img := range sink.ComposedFrames {
		if _, ok := img.(*image.RGBA); !ok {
			t.Errorf("expected copied RGBA frame, got %T", img)
		}
	}
}

func TestStage_Execute_MissingInputs(t *testing.T) {
	_, err := NewStage(&mocks.Recorder{}, mocks.NewDebugSink(false), logger.NewNoop()).
		Execute(context.Background(), pipeline.CaptureInput{})
	if !errors.Is(err, ErrCaptureStart) {
		t.Errorf("expected ErrCaptureStart, got %v", err)
	}
}

// Package capture records the composed surface while the source plays back
// in real time, together with the source's first audio track.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
)

// ErrCaptureStart means the recording could not begin.
var ErrCaptureStart = errors.New("capture could not start")

// MimePreference is the order in which container types are requested.
var MimePreference = []string{ports.MimeH264, ports.MimeWebM}

// Stage captures the surface until the source reaches end of media.
type Stage struct {
	recorder ports.Recorder
	sink     ports.DebugSink
	logger   ports.Logger
}

// NewStage creates a new capture stage.
func NewStage(recorder ports.Recorder, sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		recorder: recorder,
		sink:     sink,
		logger:   logger.WithComponent("capture"),
	}
}

// Execute rewinds the source, plays it and records until it ends.
func (s *Stage) Execute(ctx context.Context, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
	var result pipeline.CaptureResult

	if input.Source == nil || input.Surface == nil {
		return result, fmt.Errorf("%w: no source or surface", ErrCaptureStart)
	}
	if input.FPS <= 0 {
		input.FPS = pipeline.CaptureFPS
	}

	mime, err := s.selectMimeType()
	if err != nil {
		return result, err
	}
	result.MimeType = mime

	info := input.Source.Info()
	var audio *ports.AudioInput
	if info.HasAudio() {
		audio = &ports.AudioInput{Path: info.Path, Track: 0}
		result.AudioAttached = true
	} else {
		s.logger.Warn("Source has no audio track, recording video only")
	}

	if err := input.Source.Rewind(); err != nil {
		return result, fmt.Errorf("%w: rewind source: %w", ErrCaptureStart, err)
	}

	opts := ports.RecorderOptions{
		Width:           input.Size.Width,
		Height:          input.Size.Height,
		FPS:             input.FPS,
		MimeType:        mime,
		VideoBitsPerSec: input.VideoBitsPerSec,
		AudioBitsPerSec: input.AudioBitsPerSec,
		Audio:           audio,
	}
	if err := s.recorder.Start(ctx, opts); err != nil {
		return result, fmt.Errorf("%w: %w", ErrCaptureStart, err)
	}

	if err := input.Source.Play(ctx); err != nil {
		s.abort(input.Source)
		return result, fmt.Errorf("%w: play source: %w", ErrCaptureStart, err)
	}

	s.logger.Debug("Capture started: %s at %.0f fps", mime, input.FPS)

	frames, elapsed, err := s.pace(ctx, input)
	if err != nil {
		s.abort(input.Source)
		return result, err
	}
	input.Source.Pause()

	segments, err := s.recorder.Stop()
	if err != nil {
		return result, fmt.Errorf("stop recorder: %w", err)
	}

	result.Container = bytes.Join(segments, nil)
	result.Segments = len(segments)
	result.Frames = frames
	result.Duration = elapsed

	s.logger.Debug("Capture finished: %d frames, %d segments, %d bytes in %v",
		frames, len(segments), len(result.Container), elapsed)

	if s.sink.Enabled() {
		if err := s.sink.SaveRecording(result.Container, "webm"); err != nil {
			s.logger.Warn("Failed to save recording: %v", err)
		}
	}

	return result, nil
}

func (s *Stage) selectMimeType() (string, error) {
	for i, mime := range MimePreference {
		if !s.recorder.IsTypeSupported(mime) {
			continue
		}
		if i > 0 {
			s.logger.Warn("Preferred recorder type %s unavailable, using %s", MimePreference[0], mime)
		}
		return mime, nil
	}
	return "", fmt.Errorf("%w: no supported recorder type", ErrCaptureStart)
}

// pace writes surface frames on every tick so that the written count keeps
// up with elapsed playback time at input.FPS, until the source ends.
func (s *Stage) pace(ctx context.Context, input pipeline.CaptureInput) (int, time.Duration, error) {
	interval := time.Duration(float64(time.Second) / input.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ended := input.Source.Ended()
	start := time.Now()
	frames := 0
	nextDebug := 0

	catchUp := func() error {
		due := int(time.Since(start).Seconds() * input.FPS)
		if due <= frames {
			return nil
		}

		var writeErr error
		var debugFrame *image.RGBA
		input.Surface.View(func(img image.Image) {
			for frames < due {
				if writeErr = s.recorder.WriteFrame(img); writeErr != nil {
					return
				}
				frames++
			}
			if s.sink.Enabled() && frames >= nextDebug {
				debugFrame = image.NewRGBA(img.Bounds())
				draw.Draw(debugFrame, debugFrame.Rect, img, img.Bounds().Min, draw.Src)
			}
		})
		if writeErr != nil {
			return fmt.Errorf("write frame %d: %w", frames, writeErr)
		}

		if debugFrame != nil {
			if err := s.sink.SaveComposedFrame(frames, debugFrame); err != nil {
				s.logger.Warn("Failed to save composed frame %d: %v", frames, err)
			}
			// One debug frame per second of capture.
			nextDebug = frames + int(input.FPS)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return frames, time.Since(start), fmt.Errorf("capture: %w", ctx.Err())
		case <-ended:
			if err := catchUp(); err != nil {
				return frames, time.Since(start), err
			}
			return frames, time.Since(start), nil
		case <-ticker.C:
			if err := catchUp(); err != nil {
				return frames, time.Since(start), err
			}
		}
	}
}

// abort stops playback and discards the partial recording.
func (s *Stage) abort(source ports.MediaSource) {
	source.Pause()
	if _, err := s.recorder.Stop(); err != nil {
		s.logger.Debug("Recorder stop after failure: %v", err)
	}
}

// Ensure Stage implements pipeline.Stage
var _ pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult] = (*Stage)(nil)

// Package transcode re-encodes the recorded container into a delivery MP4
// through the codec engine.
package transcode

import (
	"context"
	"errors"
	"math"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
)

// Working storage names.
const (
	InputName  = "input.webm"
	OutputName = "output.mp4"
)

// ErrTranscodeFailed is the only error Execute returns. Its text is shown to
// the user; the engine cause is logged at debug level.
var ErrTranscodeFailed = errors.New("failed to convert to MP4")

// Stage hands the recording to the codec engine.
type Stage struct {
	engines ports.EngineProvider
	logger  ports.Logger
}

// NewStage creates a new transcode stage.
func NewStage(engines ports.EngineProvider, logger ports.Logger) *Stage {
	return &Stage{
		engines: engines,
		logger:  logger.WithComponent("transcode"),
	}
}

// Args returns the engine command line: H.264 at CRF 20 with the medium
// preset and AAC audio at 192 kbps.
func Args() []string {
	return ffmpeg.Input(InputName).Output(OutputName, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   "medium",
		"crf":      "20",
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
		"c:a":      "aac",
		"b:a":      "192k",
	}).OverWriteOutput().GetArgs()
}

// Percent converts an engine fraction to an integer percent in [0,100].
func Percent(fraction float64) int {
	p := int(math.Round(fraction * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Execute writes the container, runs the re-encode and reads the output.
// Both working entries are deleted whatever the outcome.
func (s *Stage) Execute(ctx context.Context, input pipeline.TranscodeInput) (pipeline.TranscodeResult, error) {
	var result pipeline.TranscodeResult
	start := time.Now()

	engine, err := s.engines.Get(ctx)
	if err != nil {
		return result, s.fail("get engine", err)
	}

	defer s.cleanup(engine)

	if err := engine.WriteFile(InputName, input.Container); err != nil {
		return result, s.fail("write input", err)
	}

	onProgress := func(fraction float64) {
		if input.OnProgress != nil {
			input.OnProgress(Percent(fraction))
		}
	}

	args := Args()
	s.logger.Debug("Transcoding %d bytes: %v", len(input.Container), args)
	if err := engine.Exec(ctx, args, onProgress); err != nil {
		return result, s.fail("exec", err)
	}

	data, err := engine.ReadFile(OutputName)
	if err != nil {
		return result, s.fail("read output", err)
	}
	if len(data) == 0 {
		return result, s.fail("read output", errors.New("empty output"))
	}

	result.Data = data
	result.Duration = time.Since(start)
	s.logger.Debug("Transcode finished: %d bytes in %v", len(data), result.Duration)
	return result, nil
}

func (s *Stage) fail(step string, cause error) error {
	s.logger.Debug("Transcode failed at %s: %v", step, cause)
	return ErrTranscodeFailed
}

func (s *Stage) cleanup(engine ports.CodecEngine) {
	for _, name := range []string{InputName, OutputName} {
		if err := engine.DeleteFile(name); err != nil {
			s.logger.Debug("Failed to delete %s: %v", name, err)
		}
	}
}

// Ensure Stage implements pipeline.Stage
var _ pipeline.Stage[pipeline.TranscodeInput, pipeline.TranscodeResult] = (*Stage)(nil)

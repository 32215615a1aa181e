// Package orchestrator runs the export stages in order: capture, transcode,
// inspection and download.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/user/vinacrop/pkg/adapters/mp4probe"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/ports"
)

// Inspector reads stream information from a finished MP4.
type Inspector func(data []byte) (mp4probe.Report, error)

// Job describes one export.
type Job struct {
	Source     ports.MediaSource
	Surface    pipeline.FrameReader
	OutputPath string

	// OnTranscoding is called once capture has finished, before the handoff.
	OnTranscoding func()
	// OnProgress receives transcode progress in percent.
	OnProgress func(percent int)
}

// Orchestrator coordinates the execution of the export stages.
type Orchestrator struct {
	captureStage   pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult]
	transcodeStage pipeline.Stage[pipeline.TranscodeInput, pipeline.TranscodeResult]
	inspect        Inspector
	fs             ports.FileSystem
	logger         ports.Logger
}

// New creates a new Orchestrator. A nil inspector uses mp4probe.InspectBytes.
func New(
	captureStage pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult],
	transcodeStage pipeline.Stage[pipeline.TranscodeInput, pipeline.TranscodeResult],
	inspect Inspector,
	fs ports.FileSystem,
	logger ports.Logger,
) *Orchestrator {
	if inspect == nil {
		inspect = mp4probe.InspectBytes
	}
	return &Orchestrator{
		captureStage:   captureStage,
		transcodeStage: transcodeStage,
		inspect:        inspect,
		fs:             fs,
		logger:         logger.WithComponent("export"),
	}
}

// StageError records which stage an export failed in.
type StageError struct {
	Stage pipeline.ProcessingStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run executes the complete export. Errors are *StageError values.
func (o *Orchestrator) Run(ctx context.Context, job Job) (RunResult, error) {
	var result RunResult
	result.OutputPath = job.OutputPath
	result.Source = job.Source.Info()

	// 1. Capture the surface in real time
	o.logger.Info("Recording %s (%v)", result.Source.Path, result.Source.Duration)
	captured, err := o.captureStage.Execute(ctx, pipeline.DefaultCaptureInput(job.Source, job.Surface))
	if err != nil {
		o.logger.Error("Recording failed: %v", err)
		return result, &StageError{Stage: pipeline.StageRecording, Err: err}
	}
	result.Capture = captured
	o.logger.Info("Recording completed: %d frames, %d bytes", captured.Frames, len(captured.Container))

	if job.OnTranscoding != nil {
		job.OnTranscoding()
	}

	// 2. Re-encode through the codec engine
	o.logger.Info("Converting to MP4")
	transcoded, err := o.transcodeStage.Execute(ctx, pipeline.TranscodeInput{
		Container:  captured.Container,
		OnProgress: job.OnProgress,
	})
	if err != nil {
		o.logger.Error("Conversion failed: %v", err)
		return result, &StageError{Stage: pipeline.StageTranscoding, Err: err}
	}
	result.TranscodeDuration = transcoded.Duration
	result.FileSize = int64(len(transcoded.Data))

	// 3. Inspect the artifact; the engine output stays authoritative
	report, err := o.inspect(transcoded.Data)
	if err != nil {
		o.logger.Warn("Could not inspect output: %v", err)
		result.InspectError = err.Error()
	} else {
		result.Report = &report
		o.logger.Debug("Output streams: video=%s audio=%s %dx%d", report.VideoCodec, report.AudioCodec, report.Width, report.Height)
		if captured.AudioAttached && !report.HasAudio() {
			o.logger.Warn("Output has no audio track")
		}
	}

	// 4. Download
	start := time.Now()
	if err := o.fs.WriteFile(job.OutputPath, transcoded.Data); err != nil {
		o.logger.Error("Failed to write output: %v", err)
		return result, &StageError{Stage: pipeline.StageCompleted, Err: fmt.Errorf("write output: %w", err)}
	}
	result.WriteDuration = time.Since(start)

	o.logger.Info("Saved %s (%d bytes)", job.OutputPath, result.FileSize)
	return result, nil
}

// RunResult contains the results of an export for summary generation.
type RunResult struct {
	OutputPath string
	FileSize   int64

	// Source information
	Source ports.SourceInfo

	// Capture information
	Capture pipeline.CaptureResult

	// Artifact information; Report is nil when inspection failed
	Report       *mp4probe.Report
	InspectError string

	// Timing
	TranscodeDuration time.Duration
	WriteDuration     time.Duration
}

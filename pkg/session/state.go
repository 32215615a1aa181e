package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/vinacrop/pkg/pipeline"
)

// ErrInvalidTransition is returned for a stage change outside the table.
var ErrInvalidTransition = errors.New("invalid stage transition")

// transitions lists the stages reachable from each stage.
var transitions = map[pipeline.ProcessingStage][]pipeline.ProcessingStage{
	pipeline.StageIdle:        {pipeline.StageRecording},
	pipeline.StageRecording:   {pipeline.StageTranscoding, pipeline.StageError},
	pipeline.StageTranscoding: {pipeline.StageCompleted, pipeline.StageError},
	pipeline.StageCompleted:   {pipeline.StageIdle},
	pipeline.StageError:       {pipeline.StageIdle, pipeline.StageRecording},
}

// validTransition reports whether from may move to to. Staying in
// transcoding is allowed so progress can be updated.
func validTransition(from, to pipeline.ProcessingStage) bool {
	if from == to {
		return from == pipeline.StageTranscoding
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to pipeline.ProcessingStage) error {
	if !validTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// StateChange is one entry of the state history.
type StateChange struct {
	At    time.Time                `json:"at"`
	State pipeline.ProcessingState `json:"state"`
}

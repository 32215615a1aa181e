package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestProcessingState_IsProcessing(t *testing.T) {
	tests := []struct {
		stage ProcessingStage
		want  bool
	}{
		{StageIdle, false},
		{StageRecording, true},
		{StageTranscoding, true},
		{StageCompleted, false},
		{StageError, false},
	}

	for _, tt := range tests {
		if got := (ProcessingState{Stage: tt.stage}).IsProcessing(); got != tt.want {
			t.Errorf("%s: IsProcessing = %v, want %v", tt.stage, got, tt.want)
		}
	}
}

func TestProcessingState_DisplayProgress(t *testing.T) {
	if got := (ProcessingState{Stage: StageRecording, Progress: 0}).DisplayProgress(); got != 100 {
		t.Errorf("recording should display 100, got %d", got)
	}
	if got := (ProcessingState{Stage: StageTranscoding, Progress: 42}).DisplayProgress(); got != 42 {
		t.Errorf("transcoding should display its progress, got %d", got)
	}
}

func TestProcessingState_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(ProcessingState{Stage: StageTranscoding, Progress: 7})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	s := string(data)
	for _, want := range []string{`"isProcessing":true`, `"progress":7`, `"stage":"transcoding"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "errorMessage") {
		t.Errorf("empty error message should be omitted: %s", s)
	}
}

func TestDefaultVideoConfig(t *testing.T) {
	cfg := DefaultVideoConfig("caption")

	if cfg.TextOverlay != "caption" || cfg.FontSize != 48 || cfg.FontColor != "#ffffff" ||
		cfg.BackgroundColor != "#000000" || cfg.BackgroundOpacity != 0.6 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

package mp4probe

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
)

// buildInit encodes an init segment with one video track and optionally
// one audio track using the given sample entry types.
func buildInit(t *testing.T, videoType, audioType string) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(60000, "video", "und")
	vtrak := init.Moov.Traks[0]
	vtrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox(videoType, 1080, 1920, nil))
	vtrak.Tkhd.Width = mp4.Fixed32(1080 << 16)
	vtrak.Tkhd.Height = mp4.Fixed32(1920 << 16)

	if audioType != "" {
		init.AddEmptyTrack(48000, "audio", "und")
		atrak := init.Moov.Traks[1]
		atrak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateAudioSampleEntryBox(audioType, 2, 16, 48000, nil))
	}

	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		t.Fatalf("encode init: %v", err)
	}
	return buf.Bytes()
}

func TestInspectBytes_H264AAC(t *testing.T) {
	rep, err := InspectBytes(buildInit(t, "avc1", "mp4a"))
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}

	if rep.VideoCodec != CodecH264 {
		t.Errorf("expected h264, got %s", rep.VideoCodec)
	}
	if rep.AudioCodec != CodecAAC {
		t.Errorf("expected aac, got %s", rep.AudioCodec)
	}
	if rep.Width != 1080 || rep.Height != 1920 {
		t.Errorf("expected 1080x1920, got %dx%d", rep.Width, rep.Height)
	}
	if rep.Tracks != 2 {
		t.Errorf("expected 2 tracks, got %d", rep.Tracks)
	}
	if !rep.IsDeliveryFormat() {
		t.Error("expected delivery format")
	}
}

func TestInspectBytes_VideoOnly(t *testing.T) {
	rep, err := InspectBytes(buildInit(t, "avc3", ""))
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}

	if rep.HasAudio() {
		t.Error("expected no audio track")
	}
	if !rep.IsDeliveryFormat() {
		t.Error("video-only H.264 should still be a delivery format")
	}
}

func TestInspectBytes_NotDelivery(t *testing.T) {
	rep, err := InspectBytes(buildInit(t, "av01", "Opus"))
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}

	if rep.VideoCodec != CodecAV1 || rep.AudioCodec != CodecOpus {
		t.Errorf("unexpected codecs %s/%s", rep.VideoCodec, rep.AudioCodec)
	}
	if rep.IsDeliveryFormat() {
		t.Error("AV1/Opus must not be reported as delivery format")
	}
}

func TestInspectBytes_Garbage(t *testing.T) {
	if _, err := InspectBytes([]byte("definitely not an mp4 file")); err == nil {
		t.Error("expected error for non-MP4 data")
	}
}

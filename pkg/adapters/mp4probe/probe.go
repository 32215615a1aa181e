// Package mp4probe inspects the tracks of an exported MP4 artifact.
package mp4probe

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec represents a track codec.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecAAC     Codec = "aac"
	CodecOpus    Codec = "opus"
	CodecUnknown Codec = "unknown"
)

// ErrNoTracks is returned when the file carries no moov tracks.
var ErrNoTracks = errors.New("mp4probe: no tracks found")

// Report describes the tracks of an MP4 file.
type Report struct {
	VideoCodec Codec
	AudioCodec Codec // CodecUnknown when there is no audio track
	Width      int
	Height     int
	Tracks     int
	Fragmented bool
}

// HasAudio reports whether an audio track was found.
func (r Report) HasAudio() bool {
	return r.AudioCodec != CodecUnknown
}

// IsDeliveryFormat reports whether the file is H.264 video with AAC audio
// (or no audio), the format exports are expected to produce.
func (r Report) IsDeliveryFormat() bool {
	return r.VideoCodec == CodecH264 && (r.AudioCodec == CodecAAC || !r.HasAudio())
}

// InspectBytes inspects MP4 data held in memory.
func InspectBytes(data []byte) (Report, error) {
	return Inspect(bytes.NewReader(data))
}

// Inspect decodes the box structure and reports the first video and audio track.
func Inspect(r io.ReadSeeker) (Report, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return Report{}, fmt.Errorf("decode mp4: %w", err)
	}

	var moov *mp4.MoovBox
	if f.Moov != nil {
		moov = f.Moov
	} else if f.Init != nil && f.Init.Moov != nil {
		moov = f.Init.Moov
	}
	if moov == nil || len(moov.Traks) == 0 {
		return Report{}, ErrNoTracks
	}

	rep := Report{
		VideoCodec: CodecUnknown,
		AudioCodec: CodecUnknown,
		Tracks:     len(moov.Traks),
		Fragmented: f.IsFragmented(),
	}

	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			if rep.VideoCodec != CodecUnknown {
				continue
			}
			rep.VideoCodec = sampleEntryCodec(trak)
			if trak.Tkhd != nil {
				rep.Width = int(trak.Tkhd.Width >> 16)
				rep.Height = int(trak.Tkhd.Height >> 16)
			}
		case "soun":
			if rep.AudioCodec == CodecUnknown {
				rep.AudioCodec = sampleEntryCodec(trak)
				if rep.AudioCodec == CodecUnknown {
					// Audio present but not a codec we name.
					rep.AudioCodec = Codec("other")
				}
			}
		}
	}

	return rep, nil
}

func sampleEntryCodec(trak *mp4.TrakBox) Codec {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		case "vp09":
			return CodecVP9
		case "mp4a":
			return CodecAAC
		case "Opus":
			return CodecOpus
		}
	}
	return CodecUnknown
}

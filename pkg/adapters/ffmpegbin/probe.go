package ffmpegbin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/vinacrop/pkg/ports"
)

// probeOutput mirrors the parts of `ffprobe -print_format json` we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	Duration     string `json:"duration"`
}

// Prober runs ffprobe.
type Prober struct {
	path string
}

// NewProber creates a Prober for the ffprobe executable at path.
func NewProber(path string) *Prober {
	return &Prober{path: path}
}

// Path returns the ffprobe executable path.
func (p *Prober) Path() string {
	return p.path
}

// Probe reads stream information of a media file.
func (p *Prober) Probe(ctx context.Context, path string) (ports.SourceInfo, error) {
	data, err := p.run(ctx, path)
	if err != nil {
		return ports.SourceInfo{}, err
	}

	info, err := ParseProbeOutput(data)
	if err != nil {
		return ports.SourceInfo{}, err
	}
	info.Path = path
	return info, nil
}

// Duration returns the container duration of a media file, or zero when
// ffprobe cannot tell (e.g. Matroska written to a pipe).
func (p *Prober) Duration(ctx context.Context, path string) time.Duration {
	data, err := p.run(ctx, path)
	if err != nil {
		return 0
	}

	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0
	}
	return out.duration()
}

func (p *Prober) run(ctx context.Context, path string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrProbeFailed, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ParseProbeOutput converts ffprobe JSON into SourceInfo.
// The first video stream provides dimensions, rate and codec.
func ParseProbeOutput(data []byte) (ports.SourceInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ports.SourceInfo{}, fmt.Errorf("%w: parse json: %v", ErrProbeFailed, err)
	}

	var info ports.SourceInfo
	foundVideo := false
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			info.Width = s.Width
			info.Height = s.Height
			info.VideoCodec = s.CodecName
			info.FPS = ParseFrameRate(s.AvgFrameRate)
			if info.FPS == 0 {
				info.FPS = ParseFrameRate(s.RFrameRate)
			}
		case "audio":
			info.AudioTracks++
		}
	}

	if !foundVideo || info.Width <= 0 || info.Height <= 0 {
		return ports.SourceInfo{}, ErrNoVideoStream
	}

	info.Duration = out.duration()
	return info, nil
}

func (o probeOutput) duration() time.Duration {
	if d := parseSeconds(o.Format.Duration); d > 0 {
		return d
	}
	var longest time.Duration
	for _, s := range o.Streams {
		if d := parseSeconds(s.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

// ParseFrameRate parses ffprobe rates like "30000/1001" or "25".
// It returns 0 for unknown rates such as "0/0".
func ParseFrameRate(s string) float64 {
	if s == "" {
		return 0
	}
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) time.Duration {
	if s == "" || s == "N/A" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return time.Duration(math.Round(f*1e6)) * time.Microsecond
}

func siblingPath(exe, name string) string {
	return filepath.Join(filepath.Dir(exe), name)
}

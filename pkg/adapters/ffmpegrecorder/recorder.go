// Package ffmpegrecorder implements ports.Recorder with an ffmpeg process
// that reads raw RGBA frames on stdin and writes a Matroska/WebM stream to stdout.
package ffmpegrecorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/user/vinacrop/pkg/adapters/ffmpegbin"
	"github.com/user/vinacrop/pkg/ports"
)

const (
	// MimeH264 is H.264 video in a WebM-labelled Matroska container.
	MimeH264 = ports.MimeH264
	// MimeWebM is VP8 video with Opus audio.
	MimeWebM = ports.MimeWebM
)

const (
	// segmentSize is the chunk size of container data delivered as one segment.
	segmentSize = 256 * 1024

	// stderrTail bounds how much ffmpeg diagnostic output is kept for errors.
	stderrTail = 4096
)

var (
	// ErrUnsupportedType is returned by Start for a mime type without an encoder.
	ErrUnsupportedType = errors.New("ffmpegrecorder: unsupported mime type")

	// ErrNotRecording is returned when frames are written outside a recording.
	ErrNotRecording = errors.New("ffmpegrecorder: not recording")

	// ErrAlreadyRecording is returned when Start is called twice.
	ErrAlreadyRecording = errors.New("ffmpegrecorder: already recording")
)

// profile maps a mime type to encoder arguments.
type profile struct {
	videoEncoder string
	audioEncoder string
	format       string
	videoArgs    ffmpeg.KwArgs
}

var profiles = map[string]profile{
	MimeH264: {
		videoEncoder: "libx264",
		audioEncoder: "libopus",
		format:       "matroska",
		videoArgs:    ffmpeg.KwArgs{"preset": "veryfast", "tune": "zerolatency", "pix_fmt": "yuv420p"},
	},
	MimeWebM: {
		videoEncoder: "libvpx",
		audioEncoder: "libopus",
		format:       "webm",
		videoArgs:    ffmpeg.KwArgs{"deadline": "realtime", "cpu-used": "8", "pix_fmt": "yuv420p"},
	},
}

// Recorder implements ports.Recorder.
type Recorder struct {
	ffmpegPath string
	logger     ports.Logger

	encodersOnce sync.Once
	encoders     map[string]bool

	mu       sync.Mutex
	opts     ports.RecorderOptions
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   *ffmpegbin.TailBuffer
	segments [][]byte
	readDone chan error
	scratch  *image.RGBA
	frames   int
}

// New creates a Recorder using the ffmpeg executable at ffmpegPath.
func New(ffmpegPath string, logger ports.Logger) *Recorder {
	return &Recorder{
		ffmpegPath: ffmpegPath,
		logger:     logger.WithComponent("recorder"),
	}
}

// IsTypeSupported reports whether ffmpeg has the encoders the mime type needs.
func (r *Recorder) IsTypeSupported(mimeType string) bool {
	p, ok := profiles[normalizeMime(mimeType)]
	if !ok {
		return false
	}
	r.encodersOnce.Do(func() {
		r.encoders = listEncoders(r.ffmpegPath)
	})
	return r.encoders[p.videoEncoder] && r.encoders[p.audioEncoder]
}

// Start launches the encoder process.
func (r *Recorder) Start(ctx context.Context, opts ports.RecorderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyRecording
	}
	p, ok := profiles[normalizeMime(opts.MimeType)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, opts.MimeType)
	}

	cmd := exec.CommandContext(ctx, r.ffmpegPath, buildArgs(p, opts)...)
	r.stderr = ffmpegbin.NewTailBuffer(stderrTail)
	cmd.Stderr = r.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	r.opts = opts
	r.cmd = cmd
	r.stdin = stdin
	r.segments = nil
	r.frames = 0
	r.scratch = image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	r.readDone = make(chan error, 1)

	go r.collect(stdout, r.readDone)

	r.logger.Debug("Recorder started: %s %dx%d @ %.0f fps", opts.MimeType, opts.Width, opts.Height, opts.FPS)
	return nil
}

// WriteFrame sends one frame to the encoder.
func (r *Recorder) WriteFrame(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stdin == nil {
		return ErrNotRecording
	}

	pix := r.scratch.Pix
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect == r.scratch.Rect && rgba.Stride == r.scratch.Stride {
		pix = rgba.Pix
	} else {
		draw.Draw(r.scratch, r.scratch.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	if _, err := r.stdin.Write(pix); err != nil {
		return fmt.Errorf("write frame: %w: %s", err, strings.TrimSpace(r.stderr.String()))
	}
	r.frames++
	return nil
}

// Stop closes the encoder input and returns the container segments.
func (r *Recorder) Stop() ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil, ErrNotRecording
	}

	r.stdin.Close()
	readErr := <-r.readDone
	waitErr := r.cmd.Wait()

	segments := r.segments
	r.cmd, r.stdin, r.segments, r.scratch = nil, nil, nil, nil

	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg recording failed: %w\nstderr: %s", waitErr, r.stderr.String())
	}
	if readErr != nil {
		return nil, fmt.Errorf("read container: %w", readErr)
	}

	r.logger.Debug("Recorder stopped: %d frames, %d segments", r.frames, len(segments))
	return segments, nil
}

// collect reads the container stream in chunks; each chunk is one segment.
// It is the only writer of r.segments until Stop receives from done.
func (r *Recorder) collect(stdout io.Reader, done chan<- error) {
	br := bufio.NewReaderSize(stdout, segmentSize)
	for {
		buf := make([]byte, segmentSize)
		n, err := io.ReadFull(br, buf)
		if n > 0 {
			r.segments = append(r.segments, buf[:n])
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			done <- nil
			return
		}
		if err != nil {
			done <- err
			return
		}
	}
}

// buildArgs assembles the encoder command line.
func buildArgs(p profile, opts ports.RecorderOptions) []string {
	fps := strconv.FormatFloat(opts.FPS, 'f', -1, 64)
	frames := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"r":       fps,
	})
	streams := []*ffmpeg.Stream{frames.Get("v:0")}

	out := ffmpeg.KwArgs{
		"c:v":                   p.videoEncoder,
		// Keyframe every second keeps the intermediate seekable for the transcode.
		"g":                     strconv.Itoa(int(opts.FPS + 0.5)),
		"max_muxing_queue_size": "1024",
		"f":                     p.format,
	}
	for k, v := range p.videoArgs {
		out[k] = v
	}
	if opts.VideoBitsPerSec > 0 {
		out["b:v"] = strconv.Itoa(opts.VideoBitsPerSec)
	}
	if opts.Audio != nil {
		audio := ffmpeg.Input(opts.Audio.Path)
		streams = append(streams, audio.Get(fmt.Sprintf("a:%d", opts.Audio.Track)))
		out["c:a"] = p.audioEncoder
		if opts.AudioBitsPerSec > 0 {
			out["b:a"] = strconv.Itoa(opts.AudioBitsPerSec)
		}
		// Audio runs no longer than the captured video.
		out["shortest"] = ""
	}

	stream := ffmpeg.Output(streams, "pipe:1", out)
	prefix := []string{"-hide_banner", "-loglevel", "error"}
	return append(prefix, stream.GetArgs()...)
}

// normalizeMime lowercases and strips spaces so "video/webm; codecs=h264" matches.
func normalizeMime(m string) string {
	return strings.ReplaceAll(strings.ToLower(m), " ", "")
}

// listEncoders parses `ffmpeg -encoders` output into a set of encoder names.
func listEncoders(ffmpegPath string) map[string]bool {
	out, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return map[string]bool{}
	}
	return parseEncoders(out)
}

func parseEncoders(out []byte) map[string]bool {
	set := make(map[string]bool)
	inList := false
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			set[fields[1]] = true
		}
	}
	return set
}

var _ ports.Recorder = (*Recorder)(nil)

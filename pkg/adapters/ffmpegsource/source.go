package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/user/vinacrop/pkg/ports"
)

// Source implements ports.MediaSource. Each Play run spawns one decoder
// process starting at the current position; Pause kills it.
type Source struct {
	ffmpegPath string
	info       ports.SourceInfo
	logger     ports.Logger

	mu       sync.Mutex
	gen      int
	playing  bool
	position time.Duration
	frame    image.Image
	playCtx  context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	ended    chan struct{}
	isEnded  bool
	closed   bool
}

func newSource(ffmpegPath string, info ports.SourceInfo, logger ports.Logger) *Source {
	return &Source{
		ffmpegPath: ffmpegPath,
		info:       info,
		logger:     logger,
		ended:      make(chan struct{}),
	}
}

// Info returns the probed stream information.
func (s *Source) Info() ports.SourceInfo {
	return s.info
}

// Play starts decoding from the current position. Playing an ended source
// restarts it from zero.
func (s *Source) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("ffmpegsource: source closed")
	}
	if s.playing {
		return nil
	}
	if s.isEnded {
		s.resetLocked()
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, s.ffmpegPath, decodeArgs(s.info, s.position)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start decoder: %w", err)
	}

	s.gen++
	s.playing = true
	s.playCtx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.decode(runCtx, s.gen, cmd, stdout, &stderr, s.position, s.done)
	return nil
}

// Pause stops the decoder and keeps the position of the last shown frame.
func (s *Source) Pause() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.playing = false
	s.gen++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Playing reports whether a decoder run is active.
func (s *Source) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Rewind moves to zero and rearms Ended. A playing source keeps playing.
func (s *Source) Rewind() error {
	s.mu.Lock()
	wasPlaying, ctx := s.playing, s.playCtx
	s.mu.Unlock()

	s.Pause()

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	if wasPlaying {
		return s.Play(ctx)
	}
	return nil
}

// Position returns the timestamp of the last shown frame.
func (s *Source) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// CurrentFrame returns the last shown frame.
func (s *Source) CurrentFrame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Ended is closed when the current run reaches end of media.
func (s *Source) Ended() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// Close stops playback.
func (s *Source) Close() error {
	s.Pause()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Source) resetLocked() {
	s.position = 0
	if s.isEnded {
		s.ended = make(chan struct{})
		s.isEnded = false
	}
}

// decode reads frames from the decoder and publishes each one at its due
// wall-clock time.
func (s *Source) decode(ctx context.Context, gen int, cmd *exec.Cmd, r io.Reader, stderr *bytes.Buffer, from time.Duration, done chan struct{}) {
	defer close(done)

	frameDur := time.Duration(float64(time.Second) / s.info.FPS)
	start := time.Now()
	var readErr error

	for i := 0; ; i++ {
		img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
		if _, err := io.ReadFull(r, img.Pix); err != nil {
			readErr = err
			break
		}

		due := start.Add(time.Duration(i) * frameDur)
		if wait := time.Until(due); wait > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
		}
		if ctx.Err() != nil {
			break
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			break
		}
		s.frame = img
		s.position = from + time.Duration(i)*frameDur
		s.mu.Unlock()
	}

	// Drain so the process can exit, then reap it.
	io.Copy(io.Discard, r)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.playing = false
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
		return
	}

	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		s.logger.Warn("Decoder stopped: %v", readErr)
	} else if waitErr != nil {
		s.logger.Warn("Decoder stopped: %v: %s", waitErr, strings.TrimSpace(stderr.String()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.playing = false
	s.cancel = nil
	s.done = nil
	if s.info.Duration > 0 {
		s.position = s.info.Duration
	}
	if !s.isEnded {
		s.isEnded = true
		close(s.ended)
	}
}

// decodeArgs builds the ffmpeg command line for one playback run.
func decodeArgs(info ports.SourceInfo, from time.Duration) []string {
	stream := ffmpeg.Input(info.Path, ffmpeg.KwArgs{
		"ss": strconv.FormatFloat(from.Seconds(), 'f', 3, 64),
	}).Output("pipe:1", ffmpeg.KwArgs{
		"map":     "0:v:0",
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"r":       strconv.FormatFloat(info.FPS, 'f', -1, 64),
	})

	// Keep decoded frames at the probed size.
	prefix := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-noautorotate"}
	return append(prefix, stream.GetArgs()...)
}

var _ ports.MediaSource = (*Source)(nil)

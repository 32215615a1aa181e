// Package ffmpegengine implements ports.CodecEngine on top of the ffmpeg
// executable with a private working directory.
package ffmpegengine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/user/vinacrop/pkg/adapters/ffmpegbin"
	"github.com/user/vinacrop/pkg/ports"
)

var (
	// ErrInvalidName is returned for working storage names that are not flat file names.
	ErrInvalidName = errors.New("ffmpegengine: invalid file name")

	// ErrClosed is returned when the engine is used after Close.
	ErrClosed = errors.New("ffmpegengine: engine closed")

	// ErrExecFailed is returned when ffmpeg exits with an error.
	ErrExecFailed = errors.New("ffmpegengine: exec failed")
)

// stderrTail bounds how much ffmpeg diagnostic output is kept for errors.
const stderrTail = 4096

// Engine runs ffmpeg commands against files in a private working directory.
type Engine struct {
	ffmpegPath string
	prober     *ffmpegbin.Prober
	dir        string
	logger     ports.Logger

	mu     sync.Mutex
	closed bool
}

// New creates an engine working in dir. prober may be nil, in which case
// Exec reports progress only on completion.
func New(ffmpegPath string, prober *ffmpegbin.Prober, dir string, logger ports.Logger) *Engine {
	return &Engine{
		ffmpegPath: ffmpegPath,
		prober:     prober,
		dir:        dir,
		logger:     logger,
	}
}

// Dir returns the working directory.
func (e *Engine) Dir() string {
	return e.dir
}

// FFmpegPath returns the ffmpeg executable the engine runs.
func (e *Engine) FFmpegPath() string {
	return e.ffmpegPath
}

// FFprobePath returns the ffprobe executable, or "" without a prober.
func (e *Engine) FFprobePath() string {
	if e.prober == nil {
		return ""
	}
	return e.prober.Path()
}

// WriteFile stores data in the working directory.
func (e *Engine) WriteFile(name string, data []byte) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadFile reads a file from the working directory.
func (e *Engine) ReadFile(name string) ([]byte, error) {
	path, err := e.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile removes a file from the working directory. Missing files are not an error.
func (e *Engine) DeleteFile(name string) error {
	path, err := e.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Exec runs ffmpeg with args inside the working directory.
// Progress is computed from ffmpeg's -progress output against the duration
// of the first input; the final report is always 1.
func (e *Engine) Exec(ctx context.Context, args []string, onProgress ports.ProgressFunc) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	var total time.Duration
	if in := firstInput(args); in != "" && e.prober != nil {
		total = e.prober.Duration(ctx, filepath.Join(e.dir, in))
	}

	full := append([]string{"-hide_banner", "-nostdin", "-progress", "pipe:1", "-nostats"}, args...)
	e.logger.Debug("Engine exec: ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.ffmpegPath, full...)
	cmd.Dir = e.dir
	stderr := ffmpegbin.NewTailBuffer(stderrTail)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	ended := scanProgress(stdout, total, onProgress)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrExecFailed, err, strings.TrimSpace(stderr.String()))
	}
	if !ended && onProgress != nil {
		onProgress(1)
	}
	return nil
}

// Close removes the working directory.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return os.RemoveAll(e.dir)
}

func (e *Engine) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	return filepath.Join(e.dir, name), nil
}

// firstInput returns the value following the first -i flag.
func firstInput(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}

// scanProgress reads key=value progress blocks until EOF and reports
// fractions in [0,1]. It returns true once progress=end was seen.
func scanProgress(r io.Reader, total time.Duration, onProgress ports.ProgressFunc) bool {
	ended := false
	last := -1.0

	report := func(f float64) {
		if onProgress == nil {
			return
		}
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		if f != last {
			last = f
			onProgress(f)
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys carry microseconds.
			if total <= 0 {
				continue
			}
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			report(float64(time.Duration(us)*time.Microsecond) / float64(total))
		case "progress":
			if value == "end" {
				ended = true
				report(1)
			}
		}
	}
	// Drain so ffmpeg never blocks on a full pipe.
	io.Copy(io.Discard, r)
	return ended
}

var _ ports.CodecEngine = (*Engine)(nil)

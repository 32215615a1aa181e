// Package ffmpegsource plays uploaded source files by decoding them with
// ffmpeg into raw RGBA frames paced in real time.
package ffmpegsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/user/vinacrop/pkg/adapters/ffmpegbin"
	"github.com/user/vinacrop/pkg/ports"
)

var (
	// ErrNotVideo is returned when an upload is not sniffed as video/*.
	ErrNotVideo = errors.New("ffmpegsource: not a video file")
)

// Opener implements ports.MediaOpener.
type Opener struct {
	ffmpegPath string
	prober     *ffmpegbin.Prober
	logger     ports.Logger
}

// NewOpener creates an Opener using the given ffmpeg and ffprobe executables.
func NewOpener(ffmpegPath, ffprobePath string, logger ports.Logger) *Opener {
	return &Opener{
		ffmpegPath: ffmpegPath,
		prober:     ffmpegbin.NewProber(ffprobePath),
		logger:     logger.WithComponent("source"),
	}
}

// Open sniffs and probes path and returns a paused source at position zero.
func (o *Opener) Open(ctx context.Context, path string) (ports.MediaSource, error) {
	mime, err := DetectType(path)
	if err != nil {
		return nil, err
	}

	info, err := o.prober.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	info.MimeType = mime
	if info.FPS <= 0 {
		info.FPS = 30
	}

	o.logger.Debug("Source probed: %dx%d %.2f fps, %s, %d audio track(s)",
		info.Width, info.Height, info.FPS, info.VideoCodec, info.AudioTracks)

	return newSource(o.ffmpegPath, info, o.logger), nil
}

// DetectType sniffs the file content and returns its mime type,
// or ErrNotVideo when it is not video/*.
func DetectType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type: %w", err)
	}
	mime := mt.String()
	if !strings.HasPrefix(mime, "video/") {
		return mime, fmt.Errorf("%w: %s", ErrNotVideo, mime)
	}
	return mime, nil
}

var _ ports.MediaOpener = (*Opener)(nil)

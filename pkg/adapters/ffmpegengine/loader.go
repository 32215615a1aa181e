package ffmpegengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/user/vinacrop/pkg/adapters/ffmpegbin"
	"github.com/user/vinacrop/pkg/ports"
)

// DefaultVersion is the pinned bundle version fetched when a base URL is set.
const DefaultVersion = "6.1.1"

var (
	// ErrFetch is returned when a bundle cannot be downloaded.
	ErrFetch = errors.New("ffmpegengine: bundle fetch failed")

	// ErrHealthCheck is returned when the located ffmpeg does not run.
	ErrHealthCheck = errors.New("ffmpegengine: health check failed")
)

// LoaderConfig configures where the engine executables come from.
type LoaderConfig struct {
	// BaseURL enables remote bundles at <BaseURL>/<Version>/<name>.
	BaseURL string
	Version string

	// CacheDir holds fetched bundles. Defaults to the user cache directory.
	CacheDir string

	// FFmpegPath and FFprobePath override local lookup.
	FFmpegPath  string
	FFprobePath string

	// WorkDir is the parent of the engine working directory. Defaults to os.TempDir.
	WorkDir string

	HTTPClient *http.Client
}

// Loader implements ports.EngineLoader.
type Loader struct {
	cfg    LoaderConfig
	logger ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig, logger ports.Logger) *Loader {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Loader{cfg: cfg, logger: logger.WithComponent("engine")}
}

// Load resolves both executables, checks ffmpeg runs and creates a working directory.
func (l *Loader) Load(ctx context.Context) (ports.CodecEngine, error) {
	ffmpegPath, ffprobePath, err := l.resolveBinaries(ctx)
	if err != nil {
		return nil, err
	}

	banner, err := healthCheck(ctx, ffmpegPath)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Codec engine ready: %s", banner)

	dir, err := os.MkdirTemp(l.cfg.WorkDir, "vinacrop-engine-*")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	return New(ffmpegPath, ffmpegbin.NewProber(ffprobePath), dir, l.logger), nil
}

func (l *Loader) resolveBinaries(ctx context.Context) (string, string, error) {
	if l.cfg.BaseURL != "" {
		l.logger.Info("Fetching codec engine %s from %s", l.cfg.Version, l.cfg.BaseURL)
		ffmpegPath, err := l.fetch(ctx, ffmpegbin.FFmpeg)
		if err != nil {
			return "", "", err
		}
		ffprobePath, err := l.fetch(ctx, ffmpegbin.FFprobe)
		if err != nil {
			return "", "", err
		}
		return ffmpegPath, ffprobePath, nil
	}

	ffmpegPath, err := ffmpegbin.Find(ffmpegbin.FFmpeg, l.cfg.FFmpegPath)
	if err != nil {
		return "", "", err
	}

	var ffprobePath string
	if l.cfg.FFprobePath != "" {
		ffprobePath, err = ffmpegbin.Find(ffmpegbin.FFprobe, l.cfg.FFprobePath)
	} else {
		ffprobePath, err = ffmpegbin.FindSibling(ffmpegbin.FFprobe, ffmpegPath)
	}
	if err != nil {
		return "", "", err
	}
	return ffmpegPath, ffprobePath, nil
}

// fetch downloads one bundle into the cache unless it is already there.
func (l *Loader) fetch(ctx context.Context, tool ffmpegbin.Tool) (string, error) {
	cacheDir := l.cfg.CacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("%w: cache dir: %v", ErrFetch, err)
		}
		cacheDir = filepath.Join(base, "vinacrop")
	}

	name := tool.ExecName()
	dest := filepath.Join(cacheDir, l.cfg.Version, name)
	if st, err := os.Stat(dest); err == nil && st.Size() > 0 {
		l.logger.Debug("Using cached bundle %s", dest)
		return dest, nil
	}

	url := strings.TrimRight(l.cfg.BaseURL, "/") + "/" + l.cfg.Version + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := l.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: %s", ErrFetch, url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s: empty body", ErrFetch, url)
	}
	if err := os.Chmod(tmpName, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	l.logger.Debug("Fetched %s (%d bytes)", dest, n)
	return dest, nil
}

// healthCheck runs `ffmpeg -version` and returns its first line.
func healthCheck(ctx context.Context, ffmpegPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %v: %s", ErrHealthCheck, err, strings.TrimSpace(stderr.String()))
	}

	line, _, _ := strings.Cut(stdout.String(), "\n")
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "ffmpeg") {
		return "", fmt.Errorf("%w: unexpected output %q", ErrHealthCheck, line)
	}
	return line, nil
}

var _ ports.EngineLoader = (*Loader)(nil)

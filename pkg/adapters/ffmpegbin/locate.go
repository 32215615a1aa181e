// Package ffmpegbin locates the ffmpeg and ffprobe executables and probes
// media files with ffprobe.
package ffmpegbin

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	// ErrNotFound is returned when an executable cannot be located.
	ErrNotFound = errors.New("ffmpegbin: executable not found")

	// ErrProbeFailed is returned when ffprobe cannot read a file.
	ErrProbeFailed = errors.New("ffmpegbin: probe failed")

	// ErrNoVideoStream is returned when a probed file has no video stream.
	ErrNoVideoStream = errors.New("ffmpegbin: no video stream")
)

// Tool names an executable of the ffmpeg suite.
type Tool string

const (
	FFmpeg  Tool = "ffmpeg"
	FFprobe Tool = "ffprobe"
)

// envVar returns the environment variable that overrides the tool path.
func (t Tool) envVar() string {
	switch t {
	case FFprobe:
		return "FFPROBE_PATH"
	default:
		return "FFMPEG_PATH"
	}
}

// ExecName returns the platform file name of the tool.
func (t Tool) ExecName() string {
	if runtime.GOOS == "windows" {
		return string(t) + ".exe"
	}
	return string(t)
}

// Find searches for a tool.
// Priority: 1) custom path, 2) FFMPEG_PATH / FFPROBE_PATH env, 3) PATH, 4) common locations
func Find(tool Tool, custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrNotFound, custom)
	}

	if envPath := os.Getenv(tool.envVar()); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s %s not found", ErrNotFound, tool.envVar(), envPath)
	}

	execName := tool.ExecName()
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	for _, p := range commonPaths(execName) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, tool)
}

// FindSibling looks for tool next to an already located executable first,
// so a custom ffmpeg path also selects the matching ffprobe.
func FindSibling(tool Tool, sibling string) (string, error) {
	if sibling != "" {
		candidate := siblingPath(sibling, tool.ExecName())
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return Find(tool, "")
}

func commonPaths(execName string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\ffmpeg\bin\` + execName,
			`C:\Program Files\ffmpeg\bin\` + execName,
			`C:\Program Files (x86)\ffmpeg\bin\` + execName,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/usr/bin/" + execName,
		}
	default:
		return []string{
			"/usr/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/opt/homebrew/bin/" + execName,
			"/snap/bin/" + execName,
		}
	}
}

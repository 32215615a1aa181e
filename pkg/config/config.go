// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/user/vinacrop/pkg/adapters/ffmpegengine"
	"github.com/user/vinacrop/pkg/pipeline"
	"github.com/user/vinacrop/pkg/session"
)

// Config represents the full configuration for vinacrop.
type Config struct {
	// Caption
	Caption pipeline.VideoConfig `yaml:"caption"`

	// Output
	OutputDir     string        `yaml:"output_dir"`
	CompletedHold time.Duration `yaml:"completed_hold" validate:"gte=0"`

	// Codec engine
	FFmpegPath    string `yaml:"ffmpeg_path"`
	FFprobePath   string `yaml:"ffprobe_path"`
	BundleURL     string `yaml:"bundle_url" validate:"omitempty,url"`
	BundleVersion string `yaml:"bundle_version"`
	CacheDir      string `yaml:"cache_dir"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error quiet"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Caption: session.DefaultOptions().Config,

		OutputDir:     ".",
		CompletedHold: 3 * time.Second,

		BundleVersion: ffmpegengine.DefaultVersion,

		LogLevel: "info",

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field ranges, including the caption style.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ToSessionOptions converts Config to session.Options.
func (c Config) ToSessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.OutputDir = c.OutputDir
	opts.Config = c.Caption
	if c.CompletedHold > 0 {
		opts.CompletedHold = c.CompletedHold
	}
	return opts
}

// ToLoaderConfig converts Config to the codec engine loader configuration.
func (c Config) ToLoaderConfig() ffmpegengine.LoaderConfig {
	return ffmpegengine.LoaderConfig{
		BaseURL:     c.BundleURL,
		Version:     c.BundleVersion,
		CacheDir:    c.CacheDir,
		FFmpegPath:  c.FFmpegPath,
		FFprobePath: c.FFprobePath,
	}
}

// Package config loads, defaults and validates the talkkey YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Audio      AudioConfig      `yaml:"audio"`
	Output     OutputConfig     `yaml:"output"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// TranscribeConfig holds speech recognition settings.
type TranscribeConfig struct {
	ModelSize       string   `yaml:"model_size"`
	ComputeType     string   `yaml:"compute_type"` // auto, float16, int8 or int5
	BeamSize        int      `yaml:"beam_size"`
	Language        string   `yaml:"language"` // empty means auto-detect
	DownloadDir     string   `yaml:"download_dir"`
	ModelPath       string   `yaml:"model_path"` // overrides model_size/compute_type when set
	AutoDownload    bool     `yaml:"auto_download"`
	VAD             bool     `yaml:"vad"`
	VADMinSilenceMS int      `yaml:"vad_min_silence_ms"`
	DetectLanguage  bool     `yaml:"detect_language"`
	DetectLanguages []string `yaml:"detect_languages"` // ISO 639-1 codes, empty means all
	DetectAccuracy  string   `yaml:"detect_accuracy"`  // low or high
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys            string  `yaml:"keys"`             // e.g. "ctrl+windows"
	Mode            string  `yaml:"mode"`             // "hold" or "toggle"
	ReleaseDebounce float64 `yaml:"release_debounce"` // seconds
	Suppress        bool    `yaml:"suppress"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	BlockSize  int    `yaml:"block_size"`
	Format     string `yaml:"format"` // int16, int24 or int32
}

// OutputConfig controls how recognized text reaches the focused application.
type OutputConfig struct {
	InsertText        bool   `yaml:"insert_text"`
	CopyToClipboard   bool   `yaml:"copy_to_clipboard"`
	FocusActiveWindow bool   `yaml:"focus_active_window"`
	PasteKeys         string `yaml:"paste_keys"` // empty means platform default
}

// TelemetryConfig controls in-process tracing output.
type TelemetryConfig struct {
	Traces bool `yaml:"traces"`
}

// DebounceWindow returns the release debounce as a time.Duration.
func (h HotkeyConfig) DebounceWindow() time.Duration {
	return time.Duration(h.ReleaseDebounce * float64(time.Second))
}

// VADMinSilence returns the VAD minimum silence as a time.Duration.
func (t TranscribeConfig) VADMinSilence() time.Duration {
	return time.Duration(t.VADMinSilenceMS) * time.Millisecond
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "talkkey")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory models are downloaded into by default.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(home, ".local", "share", "talkkey", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Transcribe: TranscribeConfig{
			ModelSize:       "medium",
			ComputeType:     "auto",
			BeamSize:        5,
			DownloadDir:     DefaultModelsDir(),
			AutoDownload:    true,
			VAD:             true,
			VADMinSilenceMS: 500,
			DetectLanguage:  true,
			DetectAccuracy:  "low",
		},
		Hotkey: HotkeyConfig{
			Keys:            "ctrl+windows",
			Mode:            "hold",
			ReleaseDebounce: 0.3,
			Suppress:        true,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BlockSize:  2048,
			Format:     "int16",
		},
		Output: OutputConfig{
			InsertText:        true,
			CopyToClipboard:   true,
			FocusActiveWindow: true,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. A leading ~ in path settings is expanded to the user's home.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.DownloadDir = expandTilde(cfg.Transcribe.DownloadDir)
	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath. It returns
// ("", nil) without touching anything if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := "# talkkey configuration\n# Hold the hotkey to dictate; release to transcribe.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	t := c.Transcribe
	if t.ModelPath == "" {
		if t.ModelSize == "" {
			return invalid("transcribe.model_size must not be empty when model_path is unset")
		}
		if t.DownloadDir == "" {
			return invalid("transcribe.download_dir must not be empty when model_path is unset")
		}
	}
	switch t.ComputeType {
	case "auto", "float16", "int8", "int5":
	default:
		return invalid("transcribe.compute_type must be auto, float16, int8, or int5, got %q", t.ComputeType)
	}
	if t.BeamSize < 1 {
		return invalid("transcribe.beam_size must be >= 1")
	}
	if t.VADMinSilenceMS < 0 {
		return invalid("transcribe.vad_min_silence_ms must be >= 0")
	}
	switch t.DetectAccuracy {
	case "low", "high":
	default:
		return invalid("transcribe.detect_accuracy must be low or high, got %q", t.DetectAccuracy)
	}
	if len(t.DetectLanguages) == 1 {
		return invalid("transcribe.detect_languages needs at least two languages or none")
	}

	if strings.TrimSpace(c.Hotkey.Keys) == "" {
		return invalid("hotkey.keys must not be empty")
	}
	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return invalid("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}
	if c.Hotkey.ReleaseDebounce < 0 {
		return invalid("hotkey.release_debounce must be >= 0")
	}

	if c.Audio.SampleRate <= 0 {
		return invalid("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels <= 0 {
		return invalid("audio.channels must be > 0")
	}
	if c.Audio.BlockSize < 0 {
		return invalid("audio.block_size must be >= 0")
	}
	switch c.Audio.Format {
	case "int16", "int24", "int32":
	default:
		return invalid("audio.format must be int16, int24, or int32, got %q", c.Audio.Format)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

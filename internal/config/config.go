package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/petems/capture-tray/internal/storage"
)

type Config struct {
	UI            string           `json:"ui"` // "tray" or "terminal"
	Hotkey        string           `json:"hotkey"`
	HotkeyDarwin  string           `json:"hotkey_darwin"`
	LogLevel      string           `json:"log_level"`
	CopyReference bool             `json:"copy_reference"`
	Audio         AudioConfig      `json:"audio"`
	Recording     RecordingConfig  `json:"recording"`
	Visualizer    VisualizerConfig `json:"visualizer"`
	Storage       StorageConfig    `json:"storage"`

	path string
}

type AudioConfig struct {
	DeviceID        string `json:"device_id"`
	SampleRate      int    `json:"sample_rate"`
	Channels        int    `json:"channels"`
	FramesPerBuffer int    `json:"frames_per_buffer"`
}

type RecordingConfig struct {
	Format      string `json:"format"` // "ogg" or "wav"
	Bitrate     int    `json:"bitrate"`
	LegacyNames bool   `json:"legacy_names"`
}

type VisualizerConfig struct {
	FFTSize       int     `json:"fft_size"`
	VolumeCeiling float64 `json:"volume_ceiling"`
	Smoothing     float64 `json:"smoothing"`
	FrameRate     int     `json:"frame_rate"`
	IconSize      int     `json:"icon_size"`
}

type StorageConfig struct {
	Backend  string `json:"backend"` // "fs", "s3" or "gcs"
	Dir      string `json:"dir"`
	Bucket   string `json:"bucket"`
	Prefix   string `json:"prefix"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

// Store converts the section into backend options
func (s StorageConfig) Store() storage.Config {
	return storage.Config{
		Backend:  s.Backend,
		Dir:      s.Dir,
		Bucket:   s.Bucket,
		Prefix:   s.Prefix,
		Region:   s.Region,
		Endpoint: s.Endpoint,
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		UI:           "tray",
		Hotkey:       "Alt+R",
		HotkeyDarwin: "Alt+R", // Option+R
		LogLevel:     "info",
		Audio: AudioConfig{
			SampleRate:      48000,
			Channels:        1,
			FramesPerBuffer: 960,
		},
		Recording: RecordingConfig{
			Format:      "ogg",
			Bitrate:     32000,
			LegacyNames: true,
		},
		Visualizer: VisualizerConfig{
			FFTSize:       32,
			VolumeCeiling: 255,
			Smoothing:     0.8,
			FrameRate:     30,
			IconSize:      22,
		},
		Storage: StorageConfig{
			Backend: "fs",
			Dir:     RecordingsPath(),
		},
	}
}

// Load reads the config from path, or from the platform config path when
// path is empty. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = configPath()
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Path is the file Load read from and Save writes to
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.Path()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.UI {
	case "tray", "terminal":
	default:
		errs = append(errs, fmt.Errorf("ui must be tray or terminal, got %q", c.UI))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}

	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer))
	}

	switch c.Recording.Format {
	case "ogg", "wav":
	default:
		errs = append(errs, fmt.Errorf("recording.format must be ogg or wav, got %q", c.Recording.Format))
	}
	if c.Recording.Format == "ogg" && c.Recording.Bitrate <= 0 {
		errs = append(errs, fmt.Errorf("recording.bitrate must be positive, got %d", c.Recording.Bitrate))
	}

	v := c.Visualizer
	if v.FFTSize < 32 || v.FFTSize > 32768 || v.FFTSize&(v.FFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("visualizer.fft_size must be a power of two in [32, 32768], got %d", v.FFTSize))
	}
	if v.VolumeCeiling <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.volume_ceiling must be positive, got %g", v.VolumeCeiling))
	}
	if v.Smoothing < 0 || v.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("visualizer.smoothing must be in [0, 1), got %g", v.Smoothing))
	}
	if v.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.frame_rate must be positive, got %d", v.FrameRate))
	}
	if v.IconSize <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.icon_size must be positive, got %d", v.IconSize))
	}

	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the fs backend"))
		}
	case "s3", "gcs":
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be fs, s3 or gcs, got %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "capture-tray", "config.json")
}

// RecordingsPath returns the default directory for the fs store
func RecordingsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Music"
	case "windows":
		base = os.Getenv("USERPROFILE") + `\Music`
	default:
		if xdg := os.Getenv("XDG_MUSIC_DIR"); xdg != "" {
			base = xdg
		} else if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "capture-tray")
}

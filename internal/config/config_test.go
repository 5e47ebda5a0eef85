package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Visualizer.FFTSize != 32 {
		t.Errorf("FFTSize = %d, want 32", cfg.Visualizer.FFTSize)
	}
	if cfg.Visualizer.VolumeCeiling != 255 {
		t.Errorf("VolumeCeiling = %v, want 255", cfg.Visualizer.VolumeCeiling)
	}
	if cfg.Recording.Format != "ogg" {
		t.Errorf("Format = %q, want ogg", cfg.Recording.Format)
	}
	if !cfg.Recording.LegacyNames {
		t.Error("LegacyNames should default to true")
	}
	if cfg.Storage.Backend != "fs" {
		t.Errorf("Backend = %q, want fs", cfg.Storage.Backend)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Visualizer != Default().Visualizer {
		t.Errorf("Visualizer = %+v, want defaults", cfg.Visualizer)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"ui":"terminal","recording":{"format":"wav","legacy_names":false},"visualizer":{"fft_size":64}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UI != "terminal" {
		t.Errorf("UI = %q, want terminal", cfg.UI)
	}
	if cfg.Recording.Format != "wav" {
		t.Errorf("Format = %q, want wav", cfg.Recording.Format)
	}
	if cfg.Recording.LegacyNames {
		t.Error("LegacyNames should be overridden to false")
	}
	if cfg.Visualizer.FFTSize != 64 {
		t.Errorf("FFTSize = %d, want 64", cfg.Visualizer.FFTSize)
	}
	// untouched keys keep their defaults
	if cfg.Visualizer.VolumeCeiling != 255 {
		t.Errorf("VolumeCeiling = %v, want 255", cfg.Visualizer.VolumeCeiling)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed JSON")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Storage.Backend = "s3"
	cfg.Storage.Bucket = "recordings"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if loaded.Storage.Backend != "s3" || loaded.Storage.Bucket != "recordings" {
		t.Errorf("Storage = %+v, want s3/recordings", loaded.Storage)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ui", func(c *Config) { c.UI = "web" }},
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"channels", func(c *Config) { c.Audio.Channels = 6 }},
		{"frames", func(c *Config) { c.Audio.FramesPerBuffer = -1 }},
		{"format", func(c *Config) { c.Recording.Format = "mp3" }},
		{"bitrate", func(c *Config) { c.Recording.Bitrate = 0 }},
		{"fft not power of two", func(c *Config) { c.Visualizer.FFTSize = 48 }},
		{"fft too small", func(c *Config) { c.Visualizer.FFTSize = 16 }},
		{"ceiling", func(c *Config) { c.Visualizer.VolumeCeiling = 0 }},
		{"smoothing", func(c *Config) { c.Visualizer.Smoothing = 1 }},
		{"frame rate", func(c *Config) { c.Visualizer.FrameRate = 0 }},
		{"icon size", func(c *Config) { c.Visualizer.IconSize = 0 }},
		{"backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"fs dir", func(c *Config) { c.Storage.Dir = "" }},
		{"bucket", func(c *Config) { c.Storage.Backend = "gcs" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should reject the config")
			}
		})
	}
}

func TestWavIgnoresBitrate(t *testing.T) {
	cfg := Default()
	cfg.Recording.Format = "wav"
	cfg.Recording.Bitrate = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStorageSectionConvertsToStoreConfig(t *testing.T) {
	s := StorageConfig{Backend: "s3", Bucket: "b", Prefix: "p/", Region: "eu-west-1", Endpoint: "http://localhost:9000"}
	store := s.Store()
	if store.Backend != "s3" || store.Bucket != "b" || store.Prefix != "p/" ||
		store.Region != "eu-west-1" || store.Endpoint != "http://localhost:9000" {
		t.Errorf("Store() = %+v", store)
	}
}

func TestConfigPathUsesXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG paths are linux only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	want := filepath.Join(dir, "capture-tray", "config.json")
	if got := configPath(); got != want {
		t.Errorf("configPath() = %q, want %q", got, want)
	}
}

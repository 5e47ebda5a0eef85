package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/petems/capture-tray/internal/app"
	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/config"
	"github.com/petems/capture-tray/internal/encoder"
	"github.com/petems/capture-tray/internal/encoder/oggopus"
	"github.com/petems/capture-tray/internal/hotkey"
	"github.com/petems/capture-tray/internal/logging"
	"github.com/petems/capture-tray/internal/mic"
	"github.com/petems/capture-tray/internal/permissions"
	"github.com/petems/capture-tray/internal/storage"
	"github.com/petems/capture-tray/internal/termui"
	"github.com/petems/capture-tray/internal/tray"
	"github.com/petems/capture-tray/internal/visualizer"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config) error {
	// The terminal UI owns stdout/stderr, so log to the file only
	var log zerolog.Logger
	if cfg.UI == "terminal" {
		log = logging.NewFileOnly(cfg.LogLevel)
	} else {
		log = logging.NewWithLevel(cfg.LogLevel)
	}

	codec, err := encoder.Lookup(cfg.Recording.Format,
		oggopus.WithBitrate(cfg.Recording.Bitrate),
		encoder.WAV,
	)
	if err != nil {
		return err
	}

	microphone, err := mic.New(log)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer microphone.Close()

	var copyRef func(string) error
	if cfg.CopyReference {
		copyRef = clipboard.WriteAll
	}

	var trayUI *tray.UI
	var termUI *termui.UI
	var ui app.UI
	if cfg.UI == "terminal" {
		termUI = termui.New(termui.Options{FrameRate: cfg.Visualizer.FrameRate})
		ui = termUI
	} else {
		trayUI = tray.New(cfg, microphone.ListDevices, Version, Commit, log)
		ui = trayUI
	}

	coordinator := app.New(app.Config{
		UI:         ui,
		Microphone: microphone,
		OpenStore: func(ctx context.Context) (storage.Store, error) {
			return storage.Open(ctx, cfg.Storage.Store())
		},
		Codec: codec,
		Visualizer: visualizer.Config{
			FFTSize:       cfg.Visualizer.FFTSize,
			Smoothing:     cfg.Visualizer.Smoothing,
			VolumeCeiling: cfg.Visualizer.VolumeCeiling,
			FrameInterval: time.Second / time.Duration(cfg.Visualizer.FrameRate),
		},
		Constraints: audio.Constraints{
			Audio:           true,
			DeviceID:        cfg.Audio.DeviceID,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.Channels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		},
		LegacyNames: cfg.Recording.LegacyNames,
		Clipboard:   copyRef,
		Logger:      log,
	})

	// The hotkey is a convenience; run without it if it cannot be had
	if hk, err := registerHotkey(cfg, coordinator, log); err == nil {
		defer hk.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := func() error {
		log.Info().Msg("Shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := coordinator.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
			return err
		}
		return nil
	}
	onLoad := func() { coordinator.OnLoad(ctx) }

	log.Info().Str("ui", cfg.UI).Str("format", codec.Name).Str("storage", cfg.Storage.Backend).Msg("CaptureTray starting...")

	if termUI != nil {
		uiCtx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(uiCtx)
		g.Go(func() error {
			defer cancel()
			return termUI.Run(gctx, onLoad, nil)
		})
		g.Go(func() error {
			<-gctx.Done()
			return shutdown()
		})
		return g.Wait()
	}

	// Start tray UI - MUST run on main thread
	var shutdownErr error
	trayUI.Run(ctx, onLoad, func() { shutdownErr = shutdown() })
	return shutdownErr
}

func registerHotkey(cfg *config.Config, coordinator *app.Coordinator, log zerolog.Logger) (hotkey.Manager, error) {
	accel := cfg.PlatformHotkey()
	if accel == "" {
		return nil, fmt.Errorf("no hotkey configured")
	}
	if !permissions.Accessibility() {
		log.Warn().Msg("Accessibility permission missing, hotkey disabled")
		return nil, fmt.Errorf("accessibility permission missing")
	}

	hk, err := hotkey.New()
	if err != nil {
		log.Warn().Err(err).Msg("Hotkeys unavailable")
		return nil, err
	}
	if err := hk.Register(accel, hotkey.OnPress(coordinator.Toggle)); err != nil {
		log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		hk.Close()
		return nil, err
	}
	log.Info().Str("hotkey", accel).Msg("Hotkey registered")
	return hk, nil
}

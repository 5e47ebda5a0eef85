package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/encoder"
	"github.com/petems/capture-tray/internal/recorder"
	"github.com/petems/capture-tray/internal/storage"
	"github.com/petems/capture-tray/internal/visualizer"
	"github.com/rs/zerolog"
)

// Handlers are the control callbacks a UI shell invokes
type Handlers struct {
	Start func()
	Stop  func()
}

// UI is a shell that shows the controls and a drawing surface, e.g. the
// tray icon. SetControls is called with the coordinator locked and must not
// call back into it.
type UI interface {
	Surface() visualizer.Surface
	SetControls(Controls)
	Bind(Handlers)
}

type Config struct {
	UI          UI
	Microphone  audio.Microphone
	OpenStore   func(ctx context.Context) (storage.Store, error)
	Codec       encoder.Codec
	Visualizer  visualizer.Config
	Constraints audio.Constraints
	LegacyNames bool
	Clipboard   func(text string) error // Optional - copies saved references
	Clock       func() time.Time        // Optional - defaults to time.Now
	Logger      zerolog.Logger
}

// Coordinator ties the capture session, recorder, visualizer and store to
// the UI controls.
type Coordinator struct {
	ui          UI
	mic         audio.Microphone
	openStore   func(ctx context.Context) (storage.Store, error)
	codec       encoder.Codec
	visCfg      visualizer.Config
	constraints audio.Constraints
	legacy      bool
	clipboard   func(string) error
	now         func() time.Time
	log         zerolog.Logger

	mu       sync.Mutex
	state    State
	controls Controls
	loaded   bool
	closed   bool
	surface  visualizer.Surface
	stream   audio.Stream
	rec      *recorder.Recorder
	vis      *visualizer.Visualizer
	cancel   context.CancelFunc

	store      storage.Store
	storeReady chan struct{}
	saveCtx    context.Context
	saveCancel context.CancelFunc

	tasks sync.WaitGroup
	saves sync.WaitGroup
}

func New(cfg Config) *Coordinator {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	cfg.Visualizer.Logger = cfg.Logger.With().Str("component", "visualizer").Logger()
	return &Coordinator{
		ui:          cfg.UI,
		mic:         cfg.Microphone,
		openStore:   cfg.OpenStore,
		codec:       cfg.Codec,
		visCfg:      cfg.Visualizer,
		constraints: cfg.Constraints,
		legacy:      cfg.LegacyNames,
		clipboard:   cfg.Clipboard,
		now:         now,
		log:         cfg.Logger,
		controls:    controlsFor(Unarmed),
		storeReady:  make(chan struct{}),
	}
}

// OnLoad takes the surface from the UI, shows the initial controls and
// starts acquiring the microphone and the store in the background.
func (c *Coordinator) OnLoad(ctx context.Context) {
	c.mu.Lock()
	if c.loaded || c.closed {
		c.mu.Unlock()
		return
	}
	c.loaded = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.saveCtx, c.saveCancel = context.WithCancel(context.WithoutCancel(ctx))
	if c.ui != nil {
		c.surface = c.ui.Surface()
	}
	c.setStateLocked(Unarmed)
	c.mu.Unlock()

	if c.ui != nil {
		c.ui.Bind(Handlers{Start: c.OnStartClicked, Stop: c.OnStopClicked})
	}

	c.tasks.Add(2)
	go func() {
		defer c.tasks.Done()
		c.acquire(ctx)
	}()
	go func() {
		defer c.tasks.Done()
		c.initStore(ctx)
	}()
}

func (c *Coordinator) acquire(ctx context.Context) {
	c.log.Info().Msg("Requesting microphone")
	stream, err := c.mic.Request(ctx, c.constraints)
	if err != nil {
		c.OnPermissionDenied(err)
		return
	}
	c.OnPermissionGranted(stream)
}

func (c *Coordinator) initStore(ctx context.Context) {
	defer close(c.storeReady)
	if c.openStore == nil {
		c.log.Warn().Msg("No store configured, recordings will be discarded")
		return
	}
	store, err := c.openStore(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to open store")
		return
	}
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
}

// OnPermissionGranted arms the coordinator with stream. A second stream
// while one is held is stopped straight away.
func (c *Coordinator) OnPermissionGranted(stream audio.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := transition(c.state, Granted)
	if !ok || c.closed || c.stream != nil {
		if c.closed {
			c.log.Info().Msg("Unloaded, stopping late capture session")
		} else {
			c.log.Warn().Str("state", c.state.String()).Msg("Capture session already exists, stopping the new one")
		}
		if err := stream.Stop(); err != nil {
			c.log.Error().Err(err).Msg("Failed to stop stream")
		}
		return
	}

	f := stream.Format()
	c.log.Info().Int("sample_rate", f.SampleRate).Int("channels", f.Channels).Msg("Microphone access granted")

	c.stream = stream
	c.rec = recorder.New(stream, c.codec, recorderEvents{c}, c.log)
	c.vis = visualizer.New(c.visCfg)
	if err := c.vis.Initialize(stream, c.surface); err != nil {
		c.log.Error().Err(err).Msg("Failed to start visualizer")
	}
	c.setStateLocked(next)

	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		c.watch(stream)
	}()
}

// watch disarms the coordinator when stream ends on its own, e.g. the
// device went away. A stream stopped by unload is no longer held and is
// left alone.
func (c *Coordinator) watch(stream audio.Stream) {
	<-stream.Done()

	c.mu.Lock()
	if c.stream != stream {
		c.mu.Unlock()
		return
	}
	c.log.Warn().Msg("Capture session ended")
	c.vis.Stop()
	rec := c.rec
	c.stream, c.rec, c.vis = nil, nil, nil
	next, _ := transition(c.state, Ended)
	c.setStateLocked(next)
	c.mu.Unlock()

	// a recording in progress still finishes and saves
	rec.Wait()
}

// OnPermissionDenied logs err. There is no retry.
func (c *Coordinator) OnPermissionDenied(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := transition(c.state, Denied); !ok {
		return
	}
	if errors.Is(err, audio.ErrPermissionDenied) {
		c.log.Error().Err(err).Msg("Microphone access denied")
	} else {
		c.log.Error().Err(err).Msg("Failed to acquire microphone")
	}
}

func (c *Coordinator) OnStartClicked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

func (c *Coordinator) OnStopClicked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Toggle starts when armed and stops when recording
func (c *Coordinator) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Armed:
		c.startLocked()
	case Recording:
		c.stopLocked()
	}
}

func (c *Coordinator) startLocked() {
	next, ok := transition(c.state, Start)
	if !ok || c.rec == nil {
		c.log.Debug().Str("state", c.state.String()).Msg("Start ignored")
		return
	}
	if err := c.rec.Start(); err != nil {
		c.log.Error().Err(err).Msg("Failed to start recording")
		return
	}
	c.setStateLocked(next)
}

// stopLocked only asks the recorder to stop; the controls change when it
// reports back.
func (c *Coordinator) stopLocked() {
	if _, ok := transition(c.state, Stop); !ok || c.rec == nil {
		c.log.Debug().Str("state", c.state.String()).Msg("Stop ignored")
		return
	}
	if err := c.rec.Stop(); err != nil {
		c.log.Error().Err(err).Msg("Failed to stop recording")
	}
}

// OnRecordingStopped restores the record control
func (c *Coordinator) OnRecordingStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, _ := transition(c.state, Stopped)
	c.setStateLocked(next)
}

// OnBeforeUnload stops the visualizer and the stream and drops them
func (c *Coordinator) OnBeforeUnload() {
	c.unload()
}

func (c *Coordinator) unload() *recorder.Recorder {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}

	rec := c.rec
	if c.stream != nil {
		c.vis.Stop()
		if err := c.stream.Stop(); err != nil {
			c.log.Error().Err(err).Msg("Failed to stop stream")
		}
		c.log.Info().Msg("Capture session closed")
	}
	c.stream, c.rec, c.vis = nil, nil, nil

	next, _ := transition(c.state, Unload)
	c.setStateLocked(next)
	return rec
}

// Shutdown unloads, lets a running recording finish and waits for pending
// saves until ctx is done.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	rec := c.unload()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if rec != nil {
			rec.Wait()
		}
		c.tasks.Wait()
		c.saves.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.saveCancel != nil {
			c.saveCancel()
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Controls() Controls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls
}

func (c *Coordinator) setStateLocked(s State) {
	if s != c.state {
		c.log.Debug().Str("from", c.state.String()).Str("to", s.String()).Msg("State changed")
	}
	c.state = s
	c.controls = controlsFor(s)
	if c.ui != nil {
		c.ui.SetControls(c.controls)
	}
}

// save hands blob to the store under a generated name. It never blocks the
// caller and never retries.
func (c *Coordinator) save(blob recorder.Blob) {
	name := storage.FileName(c.now(), blob.Ext, c.legacy)

	c.mu.Lock()
	ctx := c.saveCtx
	c.mu.Unlock()
	if ctx == nil {
		// never loaded, so no store will ever be opened
		c.log.Error().Str("file", name).Int("bytes", len(blob.Data)).Msg("No store, recording discarded")
		return
	}

	c.saves.Add(1)
	go func() {
		defer c.saves.Done()

		select {
		case <-c.storeReady:
		case <-ctx.Done():
			c.log.Error().Str("file", name).Msg("Save abandoned")
			return
		}

		c.mu.Lock()
		store := c.store
		c.mu.Unlock()
		if store == nil {
			c.log.Error().Str("file", name).Int("bytes", len(blob.Data)).Msg("No store, recording discarded")
			return
		}

		ref, err := store.Save(ctx, blob.Data, name)
		if err != nil {
			var storeErr *storage.Error
			if errors.As(err, &storeErr) {
				c.log.Error().
					Str("file", name).
					Str("name", storeErr.Name).
					Str("message", storeErr.Message).
					Msg("Failed to save recording")
			} else {
				c.log.Error().Err(err).Str("file", name).Msg("Failed to save recording")
			}
			return
		}

		c.log.Info().Str("file", name).Str("ref", ref).Msg("Recording saved")
		if c.clipboard != nil {
			if err := c.clipboard(ref); err != nil {
				c.log.Warn().Err(err).Msg("Failed to copy reference")
			}
		}
	}()
}

// recorderEvents feeds recorder lifecycle events back into the coordinator.
// Saving and restoring the controls are independent.
type recorderEvents struct {
	c *Coordinator
}

func (e recorderEvents) OnStart() {
	e.c.log.Debug().Msg("Recorder started")
}

func (e recorderEvents) OnDataAvailable(blob recorder.Blob) {
	e.c.save(blob)
}

func (e recorderEvents) OnStop() {
	e.c.OnRecordingStopped()
}

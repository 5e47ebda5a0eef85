// Package visualizer paints a live volume bar from a capture stream.
package visualizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/capture-tray/internal/analysis"
	"github.com/petems/capture-tray/internal/audio"
)

var ErrAlreadyInitialized = errors.New("visualizer already initialized")

// Config controls the analysis resolution and the render loop
type Config struct {
	FFTSize       int
	Smoothing     float64
	VolumeCeiling float64 // byte magnitude drawn as a full bar
	FrameInterval time.Duration
	Foreground    color.Color
	Background    color.Color
	Logger        zerolog.Logger
}

// Visualizer owns the drawing surface and the volume sampler. It paints only
// once both are present.
type Visualizer struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	surface Surface
	sampler *analysis.VolumeSampler
	frames  uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Visualizer {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = analysis.DefaultFFTSize
	}
	if cfg.VolumeCeiling <= 0 {
		cfg.VolumeCeiling = 255
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second / 30
	}
	if cfg.Foreground == nil {
		cfg.Foreground = color.RGBA{G: 0x80, A: 0xff}
	}
	if cfg.Background == nil {
		cfg.Background = color.White
	}
	return &Visualizer{cfg: cfg, log: cfg.Logger}
}

// Initialize builds the analyser for stream, binds surface and starts the
// render loop. Stop ends both.
func (v *Visualizer) Initialize(stream audio.Stream, surface Surface) error {
	node, err := analysis.NewAnalyser(v.cfg.FFTSize, v.cfg.Smoothing)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.cancel != nil {
		v.mu.Unlock()
		return ErrAlreadyInitialized
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.mu.Unlock()

	v.SetSurface(surface)
	v.setNode(node)

	v.wg.Add(2)
	go func() {
		defer v.wg.Done()
		node.Connect(ctx, stream)
	}()
	go func() {
		defer v.wg.Done()
		v.run(ctx)
	}()

	v.log.Debug().
		Int("fft_size", node.FFTSize()).
		Dur("frame_interval", v.cfg.FrameInterval).
		Msg("Visualizer started")
	return nil
}

func (v *Visualizer) SetSurface(s Surface) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.surface = s
}

func (v *Visualizer) setNode(node analysis.FrequencySource) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if node == nil {
		v.sampler = nil
		return
	}
	v.sampler = analysis.NewVolumeSampler(node, v.cfg.VolumeCeiling)
}

// Ready reports whether surface, analysis node and sample buffer are all set
func (v *Visualizer) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readyLocked()
}

func (v *Visualizer) readyLocked() bool {
	return v.surface != nil && v.sampler.Ready()
}

// Tick paints one frame if ready and reports whether it did.
func (v *Visualizer) Tick() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.readyLocked() {
		return false
	}

	volume := v.sampler.Volume()
	b := v.surface.Bounds()

	v.surface.Fill(b, v.cfg.Background)
	if h := int(math.Round(volume * float64(b.Dy()))); h > 0 {
		v.surface.Fill(image.Rect(b.Min.X, b.Max.Y-h, b.Max.X, b.Max.Y), v.cfg.Foreground)
	}
	if err := v.surface.Flush(); err != nil {
		v.log.Debug().Err(err).Msg("Frame flush failed")
	}
	v.frames++
	return true
}

// Frames is the number of frames painted so far
func (v *Visualizer) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

func (v *Visualizer) run(ctx context.Context) {
	ticker := time.NewTicker(v.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Tick()
		}
	}
}

// Stop cancels the render loop and the analyser feed and waits for both.
func (v *Visualizer) Stop() {
	v.mu.Lock()
	cancel := v.cancel
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	v.wg.Wait()
}

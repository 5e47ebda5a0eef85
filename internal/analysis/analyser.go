// Package analysis computes frequency-domain magnitudes from captured PCM and
// reduces them to a single volume level.
package analysis

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/petems/capture-tray/internal/audio"
)

const (
	DefaultFFTSize   = 32
	DefaultSmoothing = 0.8

	MinFFTSize = 32
	MaxFFTSize = 32768

	// Decibel range mapped onto the 0..255 byte output.
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	subscriberBuffer = 16
)

// Analyser is a frequency-analysis node. It keeps the most recent FFTSize
// mono samples and turns them into byte magnitudes on demand.
type Analyser struct {
	fftSize     int
	smoothing   float64
	minDecibels float64
	maxDecibels float64

	mu       sync.Mutex
	fft      *fourier.FFT
	window   []float64
	ring     []float64 // circular buffer of the last fftSize mono samples
	pos      int
	input    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser with a fixed FFT window. fftSize must be a
// power of two between MinFFTSize and MaxFFTSize; smoothing is the time
// constant in [0,1) applied between successive reads.
func NewAnalyser(fftSize int, smoothing float64) (*Analyser, error) {
	if fftSize < MinFFTSize || fftSize > MaxFFTSize || bits.OnesCount(uint(fftSize)) != 1 {
		return nil, fmt.Errorf("fft size must be a power of 2 in [%d, %d], got %d", MinFFTSize, MaxFFTSize, fftSize)
	}
	if smoothing < 0 || smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1), got %f", smoothing)
	}

	coeffs := make([]float64, fftSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Blackman(coeffs)

	return &Analyser{
		fftSize:     fftSize,
		smoothing:   smoothing,
		minDecibels: DefaultMinDecibels,
		maxDecibels: DefaultMaxDecibels,
		fft:         fourier.NewFFT(fftSize),
		window:      coeffs,
		ring:        make([]float64, fftSize),
		input:       make([]float64, fftSize),
		coeffs:      make([]complex128, fftSize/2+1),
		smoothed:    make([]float64, fftSize/2),
	}, nil
}

func (a *Analyser) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount is the number of values ByteFrequencyData produces
func (a *Analyser) FrequencyBinCount() int {
	return a.fftSize / 2
}

// Write feeds interleaved PCM into the analyser, downmixed to mono.
func (a *Analyser) Write(samples []int16, channels int) {
	if channels <= 0 || len(samples) < channels {
		return
	}
	mono := downmixInterleaved(samples, channels, len(samples)/channels)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Only the tail can survive in the ring
	if len(mono) > a.fftSize {
		mono = mono[len(mono)-a.fftSize:]
	}
	for _, s := range mono {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % a.fftSize
	}
}

// ByteFrequencyData fills dst with the current magnitudes, one byte per bin.
// At most FrequencyBinCount bytes are written.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Oldest sample first, windowed
	for i := range a.fftSize {
		a.input[i] = a.ring[(a.pos+i)%a.fftSize] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.input)

	n := min(len(dst), len(a.smoothed))
	scale := 1 / float64(a.fftSize)
	rangeScale := 255 / (a.maxDecibels - a.minDecibels)

	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if k >= n {
			continue
		}

		db := 20 * math.Log10(a.smoothed[k])
		v := rangeScale * (db - a.minDecibels)
		switch {
		case math.IsNaN(v) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
}

// Connect feeds the analyser from stream until ctx is done or the stream
// ends. It blocks; run it on its own goroutine.
func (a *Analyser) Connect(ctx context.Context, stream audio.Stream) {
	channels := stream.Format().Channels
	ch, unsubscribe := stream.Subscribe(subscriberBuffer)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case samples, ok := <-ch:
			if !ok {
				return
			}
			a.Write(samples, channels)
		}
	}
}

// downmixInterleaved averages interleaved frames into normalized mono samples
func downmixInterleaved(samples []int16, channels, frames int) []float64 {
	mono := make([]float64, frames)
	if channels == 1 {
		for i := range frames {
			mono[i] = float64(samples[i]) / 32768
		}
		return mono
	}

	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(samples[i*channels+c])
		}
		mono[i] = sum / float64(channels) / 32768
	}
	return mono
}

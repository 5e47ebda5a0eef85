// Package recorder records a live capture stream through an encoder and
// reports the finished recording to a listener.
package recorder

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/encoder"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrStreamEnded      = errors.New("capture stream has ended")
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// Blob is one finished recording
type Blob struct {
	Data     []byte
	Ext      string
	MIMEType string
}

// Listener receives recorder lifecycle events. Events are delivered from the
// recorder's own goroutine, never from inside Start or Stop.
type Listener interface {
	OnStart()
	// OnDataAvailable is called at most once per recording, before OnStop
	OnDataAvailable(b Blob)
	// OnStop is called exactly once per recording, including when the
	// stream ends on its own
	OnStop()
}

const subscriberBuffer = 64

type Recorder struct {
	stream   audio.Stream
	codec    encoder.Codec
	listener Listener
	log      zerolog.Logger

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}
}

func New(stream audio.Stream, codec encoder.Codec, listener Listener, log zerolog.Logger) *Recorder {
	return &Recorder{
		stream:   stream,
		codec:    codec,
		listener: listener,
		log:      log,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start subscribes to the stream and begins encoding
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return ErrAlreadyRecording
	}
	select {
	case <-r.stream.Done():
		return ErrStreamEnded
	default:
	}

	enc, err := r.codec.New(r.stream.Format())
	if err != nil {
		return err
	}

	samples, unsubscribe := r.stream.Subscribe(subscriberBuffer)
	r.state = Recording
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.encode(enc, samples, unsubscribe, r.stop, r.done)

	r.log.Info().Str("format", r.codec.Name).Msg("Recording started")
	return nil
}

// Stop ends the current recording. It returns before the recording is
// finished; the listener hears about the result. Stop while idle is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording || r.stop == nil {
		return nil
	}
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	return nil
}

// Wait blocks until the current recording, if any, has been finished and
// reported.
func (r *Recorder) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *Recorder) encode(enc encoder.Encoder, samples <-chan []int16, unsubscribe func(), stop, done chan struct{}) {
	defer close(done)

	if r.listener != nil {
		r.listener.OnStart()
	}

	failed := false
	write := func(block []int16) {
		if failed {
			return
		}
		if err := enc.Write(block); err != nil {
			failed = true
			r.log.Error().Err(err).Msg("Encoding failed")
		}
	}

loop:
	for {
		select {
		case block, ok := <-samples:
			if !ok {
				// Stream ended underneath us
				break loop
			}
			write(block)
		case <-stop:
			unsubscribe()
			for block := range samples {
				write(block)
			}
			break loop
		}
	}
	unsubscribe()

	var blob *Blob
	if data, err := enc.Finish(); err != nil {
		r.log.Error().Err(err).Msg("Failed to finish recording")
	} else if !failed {
		blob = &Blob{Data: data, Ext: r.codec.Ext, MIMEType: r.codec.MIMEType}
	}

	r.mu.Lock()
	r.state = Idle
	r.mu.Unlock()

	if blob != nil {
		r.log.Info().Int("bytes", len(blob.Data)).Msg("Recording available")
		if r.listener != nil {
			r.listener.OnDataAvailable(*blob)
		}
	}
	r.log.Info().Msg("Recording stopped")
	if r.listener != nil {
		r.listener.OnStop()
	}
}

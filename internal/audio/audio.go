package audio

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied is returned (wrapped) when the OS or the user
	// refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrUnsupportedConstraints is returned for requests this capture
	// backend cannot satisfy, such as video.
	ErrUnsupportedConstraints = errors.New("unsupported capture constraints")
)

// Constraints describes what a caller wants from the capture device
type Constraints struct {
	Video           bool
	Audio           bool
	DeviceID        string
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// Format describes interleaved signed 16-bit PCM
type Format struct {
	SampleRate int
	Channels   int
}

// Stream is a live capture source. Blocks of interleaved PCM are fanned out
// to every subscriber; subscribers must treat the blocks as read-only.
type Stream interface {
	Format() Format
	// Subscribe returns a channel of PCM blocks and a function that
	// unsubscribes and closes the channel. Blocks are dropped when the
	// channel is full.
	Subscribe(buffer int) (<-chan []int16, func())
	// Done is closed once the stream has stopped.
	Done() <-chan struct{}
	Stop() error
}

// Microphone is the permission API: one Request per session
type Microphone interface {
	Request(ctx context.Context, c Constraints) (Stream, error)
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

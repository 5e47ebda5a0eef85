// Package encoder turns captured PCM into a finished media container.
package encoder

import (
	"fmt"

	"github.com/petems/capture-tray/internal/audio"
)

// Encoder consumes interleaved PCM blocks and produces one finished file
type Encoder interface {
	Write(samples []int16) error
	// Finish flushes the container and returns its bytes. The encoder
	// cannot be reused afterwards.
	Finish() ([]byte, error)
}

// Codec names a container format and how to build its encoder
type Codec struct {
	Name     string
	Ext      string
	MIMEType string
	New      func(f audio.Format) (Encoder, error)
}

// Lookup finds a codec by name among codecs
func Lookup(name string, codecs ...Codec) (Codec, error) {
	for _, c := range codecs {
		if c.Name == name {
			return c, nil
		}
	}
	return Codec{}, fmt.Errorf("unknown recording format: %q", name)
}

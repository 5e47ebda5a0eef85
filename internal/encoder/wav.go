package encoder

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/petems/capture-tray/internal/audio"
)

// WAV writes 16-bit PCM RIFF/WAVE
var WAV = Codec{
	Name:     "wav",
	Ext:      "wav",
	MIMEType: "audio/wav",
	New:      newWAVEncoder,
}

const wavBitDepth = 16

type wavEncoder struct {
	file   *memFile
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	closed bool
}

func newWAVEncoder(f audio.Format) (Encoder, error) {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, fmt.Errorf("invalid wav format: %d Hz, %d channels", f.SampleRate, f.Channels)
	}
	file := &memFile{}
	return &wavEncoder{
		file: file,
		enc:  wav.NewEncoder(file, f.SampleRate, wavBitDepth, f.Channels, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: f.Channels,
				SampleRate:  f.SampleRate,
			},
			SourceBitDepth: wavBitDepth,
		},
	}, nil
}

func (w *wavEncoder) Write(samples []int16) error {
	if w.closed {
		return errors.New("wav encoder already finished")
	}
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(s)
	}
	return w.enc.Write(w.buf)
}

func (w *wavEncoder) Finish() ([]byte, error) {
	if w.closed {
		return nil, errors.New("wav encoder already finished")
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish wav: %w", err)
	}
	return w.file.data, nil
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes once the length is known.
type memFile struct {
	data []byte
	pos  int64
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = abs
	return abs, nil
}

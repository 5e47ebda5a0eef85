// Package oggopus encodes PCM to Opus with libopus and muxes the packets
// into an OGG container.
package oggopus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"github.com/petems/capture-tray/internal/audio"
	"github.com/petems/capture-tray/internal/encoder"
)

const (
	// 20ms frames; Opus granule positions always count 48kHz samples.
	framesPerSecond  = 50
	granulePerFrame  = 48000 / framesPerSecond
	maxPacketBytes   = 4000
	DefaultBitrate   = 32000
	defaultMIMEType  = "audio/ogg; codecs=opus"
	defaultExtension = "ogg"
)

// Codec is the OGG/Opus codec at DefaultBitrate
var Codec = WithBitrate(DefaultBitrate)

// WithBitrate returns the OGG/Opus codec targeting bitrate bits per second.
// Zero leaves libopus on its automatic bitrate.
func WithBitrate(bitrate int) encoder.Codec {
	return encoder.Codec{
		Name:     "ogg",
		Ext:      defaultExtension,
		MIMEType: defaultMIMEType,
		New: func(f audio.Format) (encoder.Encoder, error) {
			return newEncoder(f, bitrate)
		},
	}
}

type oggOpusEncoder struct {
	format    audio.Format
	frameSize int // interleaved samples per 20ms frame

	enc     *opus.Encoder
	out     *bytes.Buffer
	ogg     *oggwriter.OggWriter
	pending []int16
	packet  []byte

	seq       uint16
	timestamp uint32
	finished  bool
}

func newEncoder(f audio.Format, bitrate int) (*oggOpusEncoder, error) {
	switch f.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("opus does not support %d Hz capture", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return nil, fmt.Errorf("opus supports 1 or 2 channels, got %d", f.Channels)
	}

	enc, err := opus.NewEncoder(f.SampleRate, f.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if bitrate > 0 {
		if err := enc.SetBitrate(bitrate); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
		}
	}

	out := &bytes.Buffer{}
	ogg, err := oggwriter.NewWith(out, uint32(f.SampleRate), uint16(f.Channels))
	if err != nil {
		return nil, fmt.Errorf("failed to start ogg stream: %w", err)
	}

	frameSize := f.SampleRate / framesPerSecond * f.Channels
	return &oggOpusEncoder{
		format:    f,
		frameSize: frameSize,
		enc:       enc,
		out:       out,
		ogg:       ogg,
		pending:   make([]int16, 0, 2*frameSize),
		packet:    make([]byte, maxPacketBytes),
	}, nil
}

func (e *oggOpusEncoder) Write(samples []int16) error {
	if e.finished {
		return errors.New("ogg encoder already finished")
	}
	e.pending = append(e.pending, samples...)
	for len(e.pending) >= e.frameSize {
		if err := e.encodeFrame(e.pending[:e.frameSize]); err != nil {
			return err
		}
		e.pending = append(e.pending[:0], e.pending[e.frameSize:]...)
	}
	return nil
}

func (e *oggOpusEncoder) encodeFrame(frame []int16) error {
	n, err := e.enc.Encode(frame, e.packet)
	if err != nil {
		return fmt.Errorf("opus encode failed: %w", err)
	}

	payload := make([]byte, n)
	copy(payload, e.packet[:n])

	err = e.ogg.WriteRTP(&rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: e.seq,
			Timestamp:      e.timestamp,
		},
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("ogg write failed: %w", err)
	}
	e.seq++
	e.timestamp += granulePerFrame
	return nil
}

// Finish pads the last partial frame with silence and closes the stream
func (e *oggOpusEncoder) Finish() ([]byte, error) {
	if e.finished {
		return nil, errors.New("ogg encoder already finished")
	}
	e.finished = true

	if len(e.pending) > 0 {
		frame := make([]int16, e.frameSize)
		copy(frame, e.pending)
		e.pending = e.pending[:0]
		if err := e.encodeFrame(frame); err != nil {
			return nil, err
		}
	}

	if err := e.ogg.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ogg stream: %w", err)
	}

	// oggwriter only flags the last page when it owns a file
	data := e.out.Bytes()
	if err := markEndOfStream(data); err != nil {
		return nil, err
	}
	return data, nil
}

const (
	pageHeaderLen = 27
	pageSignature = "OggS"
	headerTypeOff = 5
	checksumOff   = 22
	segmentsOff   = 26
	headerTypeEOS = 0x04
	checksumPoly  = 0x04c11db7
)

var checksumTable = func() (table [256]uint32) {
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ checksumPoly
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

func pageChecksum(page []byte) uint32 {
	var crc uint32
	for _, b := range page {
		crc = crc<<8 ^ checksumTable[byte(crc>>24)^b]
	}
	return crc
}

// pageOffsets returns where each page of an in-memory ogg stream starts
func pageOffsets(data []byte) ([]int, error) {
	var offsets []int
	for off := 0; off < len(data); {
		if len(data)-off < pageHeaderLen || string(data[off:off+4]) != pageSignature {
			return nil, fmt.Errorf("malformed ogg page at offset %d", off)
		}
		segments := int(data[off+segmentsOff])
		size := pageHeaderLen + segments
		if off+size > len(data) {
			return nil, fmt.Errorf("truncated ogg page at offset %d", off)
		}
		for _, l := range data[off+pageHeaderLen : off+size] {
			size += int(l)
		}
		if off+size > len(data) {
			return nil, fmt.Errorf("truncated ogg page at offset %d", off)
		}
		offsets = append(offsets, off)
		off += size
	}
	return offsets, nil
}

// markEndOfStream sets the EOS flag on the last page and reseals it
func markEndOfStream(data []byte) error {
	offsets, err := pageOffsets(data)
	if err != nil {
		return err
	}
	if len(offsets) == 0 {
		return errors.New("empty ogg stream")
	}
	page := data[offsets[len(offsets)-1]:]
	page[headerTypeOff] |= headerTypeEOS
	binary.LittleEndian.PutUint32(page[checksumOff:], 0)
	binary.LittleEndian.PutUint32(page[checksumOff:], pageChecksum(page))
	return nil
}

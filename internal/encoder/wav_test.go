package encoder

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/capture-tray/internal/audio"
)

func TestWAVEncoderProducesReadableFile(t *testing.T) {
	enc, err := WAV.New(audio.Format{SampleRate: 16000, Channels: 2})
	require.NoError(t, err)

	require.NoError(t, enc.Write([]int16{1, -1, 2, -2}))
	require.NoError(t, enc.Write([]int16{300, -300}))

	data, err := enc.Finish()
	require.NoError(t, err)
	require.Greater(t, len(data), 44)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(16000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, []int{1, -1, 2, -2, 300, -300}, buf.Data)

	_, err = enc.Finish()
	assert.Error(t, err)
	assert.Error(t, enc.Write([]int16{1}))
}

func TestWAVEncoderRejectsInvalidFormat(t *testing.T) {
	_, err := WAV.New(audio.Format{})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	c, err := Lookup("wav", WAV)
	require.NoError(t, err)
	assert.Equal(t, "wav", c.Ext)

	_, err = Lookup("flac", WAV)
	assert.Error(t, err)
}

func TestMemFileSeekAndOverwrite(t *testing.T) {
	m := &memFile{}
	_, err := m.Write([]byte("abcdef"))
	require.NoError(t, err)

	pos, err := m.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	_, err = m.Write([]byte("XY"))
	require.NoError(t, err)
	assert.Equal(t, "abXYef", string(m.data))

	pos, err = m.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	_, err = m.Seek(-10, io.SeekCurrent)
	assert.Error(t, err)
}

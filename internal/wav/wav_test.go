package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePCM16(t *testing.T) {
	got := EncodePCM16([]float32{-1.0, 0.0, 1.0, -0.5})
	assert.Equal(t, []int16{-32768, 0, 32767, -16384}, got)
}

func TestEncodePCM16_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		in       float32
		expected int16
	}{
		{"above one", 1.5, 32767},
		{"below minus one", -3, -32768},
		{"half", 0.5, 16383},
		{"tiny negative", -0.00001, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodePCM16([]float32{tt.in})[0])
		})
	}
}

func TestEncodePCM16_PreservesLength(t *testing.T) {
	assert.Len(t, EncodePCM16(make([]float32, 4096)), 4096)
	assert.Empty(t, EncodePCM16(nil))
}

func TestEncode_OneSecondHeader(t *testing.T) {
	data, err := Encode(make([]float32, 16000), 16000)
	require.NoError(t, err)

	assert.Len(t, data, 44+32000)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(36+32000), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(data[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(data[40:44]))
}

func TestEncode_SamplePayload(t *testing.T) {
	data, err := Encode([]float32{-1.0, 0.0, 1.0, -0.5}, 8000)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+8)

	var got []int16
	for i := HeaderSize; i < len(data); i += 2 {
		got = append(got, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	assert.Equal(t, []int16{-32768, 0, 32767, -16384}, got)
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil, 16000)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestEncode_InvalidSampleRate(t *testing.T) {
	_, err := Encode([]float32{0}, 0)
	require.Error(t, err)

	var encErr *EncodingError
	assert.True(t, errors.As(err, &encErr))
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestEncode_ReadableByGoAudio(t *testing.T) {
	samples := make([]float32, 480)
	for i := range samples {
		samples[i] = float32(i%10) / 10
	}

	data, err := Encode(samples, 48000)
	require.NoError(t, err)

	dec := gowav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Len(t, buf.Data, len(samples))
	assert.Equal(t, int(EncodePCM16(samples)[9]), buf.Data[9])
}

func TestParseHeader(t *testing.T) {
	data, err := Encode(make([]float32, 100), 16000)
	require.NoError(t, err)

	h, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(16000), h.SampleRate)
	assert.Equal(t, uint32(200), h.DataSize)
	assert.Equal(t, 100, h.SampleCount())
}

func TestParseHeader_Malformed(t *testing.T) {
	_, err := ParseHeader([]byte("RIFF"))
	assert.ErrorIs(t, err, ErrMalformedHeader)

	data, err := Encode(make([]float32, 10), 16000)
	require.NoError(t, err)

	_, err = ParseHeader(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrMalformedHeader)

	bad := append([]byte(nil), data...)
	copy(bad[8:12], "AVI ")
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 1.0, Duration(16000, 16000))
	assert.Equal(t, 0.0, Duration(16000, 0))
}

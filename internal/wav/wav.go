// Package wav writes canonical mono 16-bit PCM WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// HeaderSize is the length of the canonical RIFF/WAVE header
	HeaderSize = 44

	// DefaultSampleRate matches what speech-to-text models expect
	DefaultSampleRate = 16000

	formatPCM     = 1
	numChannels   = 1
	bitsPerSample = 16
	bytesPerFrame = numChannels * bitsPerSample / 8
	fmtChunkSize  = 16
)

// Header holds the fields of a canonical WAV header
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// SampleCount returns the number of samples declared by the data chunk
func (h Header) SampleCount() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return int(h.DataSize) / int(h.BlockAlign)
}

// EncodingError is returned when audio cannot be turned into a WAV container
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("wav %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidSampleRate is returned for non-positive sample rates
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrTooLarge is returned when the payload does not fit the 32-bit size fields
	ErrTooLarge = errors.New("payload exceeds 4 GiB RIFF limit")
	// ErrMalformedHeader is returned by ParseHeader for anything that is not a canonical header
	ErrMalformedHeader = errors.New("malformed wav header")
)

// Encode wraps samples in a 44-byte WAV header. An empty input yields an
// empty output rather than a header-only file, so "no audio" stays
// distinguishable from silence.
func Encode(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 || sampleRate > math.MaxUint32/bytesPerFrame {
		return nil, &EncodingError{Op: "encode", Err: fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)}
	}
	if len(samples) == 0 {
		return []byte{}, nil
	}

	dataSize := uint64(len(samples)) * bytesPerFrame
	if dataSize+HeaderSize-8 > math.MaxUint32 {
		return nil, &EncodingError{Op: "encode", Err: fmt.Errorf("%w: %d samples", ErrTooLarge, len(samples))}
	}

	buf := make([]byte, HeaderSize+int(dataSize))
	putHeader(buf, uint32(sampleRate), uint32(dataSize))

	pcm := EncodePCM16(samples)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(buf[HeaderSize+i*2:], uint16(v))
	}

	return buf, nil
}

func putHeader(buf []byte, sampleRate, dataSize uint32) {
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*bytesPerFrame)
	binary.LittleEndian.PutUint16(buf[32:34], bytesPerFrame)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)
}

// ParseHeader reads the fixed 44-byte header written by Encode and checks
// that the declared sizes agree with the buffer length.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrMalformedHeader, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" ||
		string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return Header{}, fmt.Errorf("%w: unexpected chunk tags", ErrMalformedHeader)
	}

	h := Header{
		ChunkSize:     binary.LittleEndian.Uint32(data[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(data[20:22]),
		NumChannels:   binary.LittleEndian.Uint16(data[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(data[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(data[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(data[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(data[34:36]),
		DataSize:      binary.LittleEndian.Uint32(data[40:44]),
	}

	if int(h.DataSize) != len(data)-HeaderSize {
		return h, fmt.Errorf("%w: data size %d, payload %d", ErrMalformedHeader, h.DataSize, len(data)-HeaderSize)
	}
	if h.ChunkSize != 36+h.DataSize {
		return h, fmt.Errorf("%w: chunk size %d", ErrMalformedHeader, h.ChunkSize)
	}

	return h, nil
}

// Duration returns the playback length in seconds of n samples at sampleRate
func Duration(n, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(n) / float64(sampleRate)
}

package audio

import (
	"errors"
	"fmt"
)

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Backend names accepted by New
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

var (
	// ErrNoDevice is returned when no usable input device exists or access to it was refused
	ErrNoDevice = errors.New("no audio input device available")
	// ErrStreamInit is returned when the capture stream cannot be constructed
	ErrStreamInit = errors.New("failed to initialize capture stream")
)

// Config holds audio configuration
type Config struct {
	DeviceID   int
	SampleRate int
	Channels   int
	BufferSize int // samples delivered per callback
	Latency    LatencyMode

	// Input processing requested from the platform. The PortAudio and
	// miniaudio backends capture raw input and cannot honour these.
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConfig returns the default audio configuration
// Sample rate: 16kHz (speech models expect it)
// Channels: 1 (mono)
// BufferSize: 4096 samples
// Latency: HighStability
func DefaultConfig() Config {
	return Config{
		DeviceID:         -1, // -1 means use default device
		SampleRate:       16000,
		Channels:         1,
		BufferSize:       4096,
		Latency:          HighStability,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// FrameHandler receives one block of captured samples. The slice is owned by
// the backend and is overwritten after the handler returns.
type FrameHandler func(in []float32)

// Stream is an opened capture stream
type Stream interface {
	// Start begins delivering frames to the handler
	Start() error
	// Stop halts capture and releases the input device
	Stop() error
	// Close tears the stream down
	Close() error
}

// Source opens capture streams on an audio backend
// This abstraction allows the backend (PortAudio, miniaudio) to be chosen by configuration
type Source interface {
	// ListDevices returns a list of available audio input devices
	ListDevices() ([]Device, error)

	// Open builds a capture stream that calls onFrame with BufferSize samples at a time
	Open(config Config, onFrame FrameHandler) (Stream, error)

	// Close releases all backend resources
	Close() error
}

// New creates a Source for the named backend
func New(backend string) (Source, error) {
	switch backend {
	case BackendPortAudio, "":
		return NewPortAudioSource()
	case BackendMalgo:
		return NewMalgoSource(nil)
	default:
		return nil, fmt.Errorf("unknown audio backend: %q", backend)
	}
}

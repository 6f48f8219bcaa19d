package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", config.SampleRate)
	}

	if config.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", config.Channels)
	}

	if config.BufferSize != 4096 {
		t.Errorf("Expected buffer size 4096, got %d", config.BufferSize)
	}

	if config.Latency != HighStability {
		t.Errorf("Expected HighStability latency, got %v", config.Latency)
	}

	if config.DeviceID != -1 {
		t.Errorf("Expected default device ID -1, got %d", config.DeviceID)
	}

	if !config.EchoCancellation || !config.NoiseSuppression || !config.AutoGainControl {
		t.Error("Expected echo cancellation, noise suppression and AGC to be requested")
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New("coreaudio"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestMalgoStreamDecode(t *testing.T) {
	want := []float32{-1, 0, 0.25, 1}
	raw := make([]byte, len(want)*4)
	for i, v := range want {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	s := &malgoStream{}
	got := s.decode(raw)
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// scratch is reused for smaller blocks
	again := s.decode(raw[:8])
	if len(again) != 2 || &again[0] != &got[0] {
		t.Error("Expected decode to reuse its scratch buffer")
	}
}

func TestMalgoStream_ClosedIsIdempotent(t *testing.T) {
	s := &malgoStream{}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop on closed stream should be a no-op, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on closed stream should be a no-op, got %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start on closed stream should fail")
	}
}

func TestNewPortAudioSource(t *testing.T) {
	source, err := NewPortAudioSource()
	if err != nil {
		t.Skipf("PortAudio not available: %v", err)
	}
	defer source.Close()

	if source == nil {
		t.Fatal("Expected non-nil source")
	}
}

func TestListDevices(t *testing.T) {
	source, err := NewPortAudioSource()
	if err != nil {
		t.Skipf("PortAudio not available: %v", err)
	}
	defer source.Close()

	devices, err := source.ListDevices()
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}

	if len(devices) == 0 {
		t.Skip("No audio input devices available")
	}

	t.Logf("Found %d input devices", len(devices))
	for _, dev := range devices {
		t.Logf("Device %d: %s (default: %v)", dev.ID, dev.Name, dev.IsDefault)
	}
}

func TestOpen_InvalidDevice(t *testing.T) {
	source, err := NewPortAudioSource()
	if err != nil {
		t.Skipf("PortAudio not available: %v", err)
	}
	defer source.Close()

	config := DefaultConfig()
	config.DeviceID = 1 << 20

	_, err = source.Open(config, func([]float32) {})
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestStreamLifecycle(t *testing.T) {
	source, err := NewPortAudioSource()
	if err != nil {
		t.Skipf("PortAudio not available: %v", err)
	}
	defer source.Close()

	stream, err := source.Open(DefaultConfig(), func([]float32) {})
	if err != nil {
		t.Skipf("No usable input device: %v", err)
	}

	if err := stream.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := stream.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	// second stop and close are no-ops
	if err := stream.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	source, err := NewPortAudioSource()
	if err != nil {
		t.Skipf("PortAudio not available: %v", err)
	}

	if err := source.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if source.initialized {
		t.Error("Source should not be initialized after Close")
	}

	if err := source.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource implements Source using miniaudio
type MalgoSource struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMalgoSource creates a miniaudio context. logf receives backend log
// messages and may be nil.
func NewMalgoSource(logf func(message string)) (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, logf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio: %w", err)
	}

	return &MalgoSource{ctx: ctx}, nil
}

// ListDevices returns a list of available audio input devices
func (s *MalgoSource) ListDevices() ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, fmt.Errorf("miniaudio context closed")
	}

	infos, err := s.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(infos))
	for i, info := range infos {
		result = append(result, Device{
			ID:        i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return result, nil
}

// Open builds a 32-bit float capture device
func (s *MalgoSource) Open(config Config, onFrame FrameHandler) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil, fmt.Errorf("%w: miniaudio context closed", ErrStreamInit)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(config.Channels)
	deviceConfig.SampleRate = uint32(config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(config.BufferSize)
	deviceConfig.Alsa.NoMMap = 1

	if config.DeviceID != -1 {
		infos, err := s.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		if config.DeviceID < 0 || config.DeviceID >= len(infos) {
			return nil, fmt.Errorf("%w: invalid device ID %d", ErrNoDevice, config.DeviceID)
		}
		deviceConfig.Capture.DeviceID = infos[config.DeviceID].ID.Pointer()
	}

	st := &malgoStream{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			onFrame(st.decode(in))
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamInit, err)
	}
	st.device = device

	return st, nil
}

// Close frees the miniaudio context
func (s *MalgoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return nil
	}
	ctx := s.ctx
	s.ctx = nil

	err := ctx.Uninit()
	ctx.Free()
	if err != nil {
		return fmt.Errorf("failed to uninit miniaudio: %w", err)
	}
	return nil
}

type malgoStream struct {
	mu      sync.Mutex
	device  *malgo.Device
	running bool

	// scratch is reused across callbacks; only touched from the audio thread
	scratch []float32
}

// decode converts little-endian float32 bytes into the reusable scratch slice
func (m *malgoStream) decode(in []byte) []float32 {
	n := len(in) / 4
	if cap(m.scratch) < n {
		m.scratch = make([]float32, n)
	}
	out := m.scratch[:n]
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	return out
}

func (m *malgoStream) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("device closed")
	}
	if m.running {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.running = true
	return nil
}

func (m *malgoStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || !m.running {
		return nil
	}
	m.running = false
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (m *malgoStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	m.device.Uninit()
	m.device = nil
	return nil
}

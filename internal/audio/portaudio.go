package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource implements Source using PortAudio
type PortAudioSource struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudioSource initializes PortAudio
func NewPortAudioSource() (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PortAudioSource{initialized: true}, nil
}

// ListDevices returns a list of available audio input devices
func (s *PortAudioSource) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		// If we can't get the default device, continue without marking any as default
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		// Only include devices with input channels
		if dev.MaxInputChannels > 0 {
			isDefault := false
			if defaultInput != nil && dev.Name == defaultInput.Name {
				isDefault = true
			}

			result = append(result, Device{
				ID:        i,
				Name:      dev.Name,
				IsDefault: isDefault,
			})
		}
	}

	return result, nil
}

// Open builds a float32 capture stream on the configured device
func (s *PortAudioSource) Open(config Config, onFrame FrameHandler) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, fmt.Errorf("%w: PortAudio not initialized", ErrStreamInit)
	}

	device, err := s.device(config.DeviceID)
	if err != nil {
		return nil, err
	}

	var latency time.Duration
	switch config.Latency {
	case LowLatency:
		latency = device.DefaultLowInputLatency
	default:
		latency = device.DefaultHighInputLatency
	}

	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: config.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(config.SampleRate),
		FramesPerBuffer: config.BufferSize,
	}

	stream, err := portaudio.OpenStream(streamParams, func(in []float32) {
		onFrame(in)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamInit, err)
	}

	return &portAudioStream{stream: stream}, nil
}

// device resolves a device ID, -1 meaning the system default input
func (s *PortAudioSource) device(id int) (*portaudio.DeviceInfo, error) {
	var device *portaudio.DeviceInfo

	if id == -1 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		device = dev
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}

		if id < 0 || id >= len(devices) {
			return nil, fmt.Errorf("%w: invalid device ID %d", ErrNoDevice, id)
		}

		device = devices[id]
	}

	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("%w: device '%s' (ID: %d) has no input channels", ErrNoDevice, device.Name, id)
	}

	return device, nil
}

// Close terminates PortAudio
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}

	s.initialized = false
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

type portAudioStream struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	running bool
}

func (p *portAudioStream) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return fmt.Errorf("stream closed")
	}
	if p.running {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.running = true
	return nil
}

func (p *portAudioStream) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.running {
		return nil
	}
	p.running = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	return nil
}

func (p *portAudioStream) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	stream := p.stream
	p.stream = nil
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

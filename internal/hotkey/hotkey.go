package hotkey

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/recording"
)

// RecordingMode defines how the hotkey triggers recording
type RecordingMode int

const (
	// PressToHold mode: record while key is held down
	PressToHold RecordingMode = iota
	// Toggle mode: a press stops an active recording and starts one otherwise
	Toggle
)

// String returns the config spelling of the mode
func (m RecordingMode) String() string {
	if m == Toggle {
		return "toggle"
	}
	return "press-to-hold"
}

// ParseMode converts a config value into a RecordingMode
func ParseMode(s string) (RecordingMode, error) {
	switch s {
	case "press-to-hold", "":
		return PressToHold, nil
	case "toggle":
		return Toggle, nil
	default:
		return PressToHold, fmt.Errorf("unknown recording mode: %q", s)
	}
}

// EventType represents the type of hotkey event
type EventType int

const (
	// Pressed asks for recording to start
	Pressed EventType = iota
	// Released asks for recording to stop
	Released
	// Toggled asks to stop when a session is active and to start otherwise
	Toggled
)

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Config holds hotkey configuration
type Config struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
	Mode      RecordingMode
}

// DefaultConfig returns Ctrl+Option+Space in press-to-hold mode
func DefaultConfig() Config {
	return Config{
		Modifiers: []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModOption},
		Key:       hotkey.KeySpace,
		Mode:      PressToHold,
	}
}

// modeFilter turns raw key transitions into start/stop events. Toggle mode
// keeps no state of its own; Drive decides from the recorder status.
type modeFilter struct {
	mode RecordingMode
}

func (f *modeFilter) keyDown() Event {
	if f.mode == Toggle {
		return Event{Type: Toggled}
	}
	return Event{Type: Pressed}
}

func (f *modeFilter) keyUp() (Event, bool) {
	if f.mode == PressToHold {
		return Event{Type: Released}, true
	}
	return Event{}, false
}

// Manager manages global hotkey registration and events
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a new hotkey manager with the default configuration
func New() *Manager {
	return &Manager{
		config:    DefaultConfig(),
		eventChan: make(chan Event, 10),
		stopChan:  make(chan struct{}),
	}
}

// Register registers the hotkey with the system
func (m *Manager) Register(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkey is already running, call Close() first")
	}

	m.config = config
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 10)

	hk := hotkey.New(m.config.Modifiers, m.config.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", FormatHotkey(config.Modifiers, config.Key), err)
	}

	m.hk = hk
	m.running = true

	m.wg.Add(1)
	go m.listen(hk, &modeFilter{mode: config.Mode}, m.eventChan, m.stopChan)

	return nil
}

// Reregister replaces the active hotkey
func (m *Manager) Reregister(config Config) error {
	if err := m.Close(); err != nil {
		return err
	}
	return m.Register(config)
}

func (m *Manager) listen(hk *hotkey.Hotkey, filter *modeFilter, events chan<- Event, stop <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-hk.Keydown():
			events <- filter.keyDown()
		case <-hk.Keyup():
			if ev, ok := filter.keyUp(); ok {
				events <- ev
			}
		case <-stop:
			return
		}
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventChan
}

// Close unregisters the hotkey and stops listening
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	var unregisterErr error

	close(m.stopChan)
	m.wg.Wait()

	// cleanup continues even if unregistering fails so Register works again
	if m.hk != nil {
		if err := m.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
		m.hk = nil
	}

	close(m.eventChan)
	m.running = false

	return unregisterErr
}

// IsRunning returns whether the hotkey is currently registered and running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetConfig returns a copy of the current hotkey configuration
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := m.config
	if m.config.Modifiers != nil {
		configCopy.Modifiers = make([]hotkey.Modifier, len(m.config.Modifiers))
		copy(configCopy.Modifiers, m.config.Modifiers)
	}

	return configCopy
}

// Recorder is the part of the capture controller the hotkey drives
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (recording.EncodedAudio, error)
	Status() recording.Status
}

// Drive forwards hotkey events to rec until events is closed or ctx is done
func Drive(ctx context.Context, events <-chan Event, rec Recorder, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			typ := ev.Type
			if typ == Toggled {
				// sessions can also end from the tray, the API or the time limit
				typ = Pressed
				if rec.Status().IsRecording {
					typ = Released
				}
			}

			switch typ {
			case Pressed:
				if err := rec.Start(ctx); err != nil {
					log.Error("Hotkey start failed: %v", err)
				}
			case Released:
				if _, err := rec.Stop(); err != nil {
					log.Error("Hotkey stop failed: %v", err)
				}
			}
		}
	}
}

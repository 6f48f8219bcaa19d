package tray

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/recording"
)

// AppName is shown in the tooltip
const AppName = "EzRec"

// State represents what the tray icon shows
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

// String returns the label used in the tooltip
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// StateOf maps a controller status onto a tray state
func StateOf(status recording.Status) State {
	switch {
	case status.IsPaused:
		return StatePaused
	case status.IsRecording:
		return StateRecording
	default:
		return StateIdle
	}
}

// Tooltip returns the tooltip text for a state and elapsed seconds
func Tooltip(state State, seconds int) string {
	if state == StateIdle {
		return AppName + " - " + state.String()
	}
	return AppName + " - " + state.String() + " " + recording.FormatDuration(seconds)
}

// PauseTitle returns the label of the pause/resume menu item
func PauseTitle(state State) string {
	if state == StatePaused {
		return "Resume"
	}
	return "Pause"
}

// Config holds tray manager configuration
type Config struct {
	OnReady        func() // Called when systray is ready for initialization
	OnStart        func()
	OnPause        func()
	OnResume       func()
	OnStop         func()
	OnCancel       func()
	OnOpenAPI      func()
	OnDeviceChange func(deviceID int)
	OnQuit         func()
	Logger         *logger.Logger
}

// Manager manages the system tray icon and menu
type Manager struct {
	config Config
	log    *logger.Logger

	stateMutex sync.RWMutex
	state      State
	seconds    int
	ready      bool

	menuStart   *systray.MenuItem
	menuPause   *systray.MenuItem
	menuStop    *systray.MenuItem
	menuCancel  *systray.MenuItem
	menuDevices *systray.MenuItem
	menuAPI     *systray.MenuItem
	menuQuit    *systray.MenuItem

	deviceMenuItems   []*systray.MenuItem
	deviceCancelFuncs []context.CancelFunc

	icons map[State][]byte
}

// NewManager creates a new tray manager
func NewManager(config Config) *Manager {
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}

	m := &Manager{
		config: config,
		log:    log,
		state:  StateIdle,
	}

	m.icons = map[State][]byte{
		StateIdle:      m.loadIcon("idle.png", idleColor),
		StateRecording: m.loadIcon("recording.png", recordingColor),
		StatePaused:    m.loadIcon("paused.png", pausedColor),
	}

	return m
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

func (m *Manager) onReady() {
	systray.SetTitle("")

	m.menuStart = systray.AddMenuItem("Start Recording", "Start a new recording")
	m.menuPause = systray.AddMenuItem("Pause", "Pause or resume the recording")
	m.menuStop = systray.AddMenuItem("Stop", "Stop and save the recording")
	m.menuCancel = systray.AddMenuItem("Cancel", "Discard the recording")
	systray.AddSeparator()
	m.menuDevices = systray.AddMenuItem("Input Device", "Select input device")
	m.menuAPI = systray.AddMenuItem("Open API Status", "Open the local API in a browser")
	systray.AddSeparator()
	m.menuQuit = systray.AddMenuItem("Quit", "Quit the application")

	m.stateMutex.Lock()
	m.ready = true
	m.render()
	m.stateMutex.Unlock()

	go m.handleMenuEvents()

	if m.config.OnReady != nil {
		m.config.OnReady()
	}
}

func (m *Manager) onExit() {
	m.stateMutex.Lock()
	m.ready = false
	m.stateMutex.Unlock()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (m *Manager) handleMenuEvents() {
	for {
		select {
		case <-m.menuStart.ClickedCh:
			call(m.config.OnStart)
		case <-m.menuPause.ClickedCh:
			if m.State() == StatePaused {
				call(m.config.OnResume)
			} else {
				call(m.config.OnPause)
			}
		case <-m.menuStop.ClickedCh:
			call(m.config.OnStop)
		case <-m.menuCancel.ClickedCh:
			call(m.config.OnCancel)
		case <-m.menuAPI.ClickedCh:
			call(m.config.OnOpenAPI)
		case <-m.menuQuit.ClickedCh:
			call(m.config.OnQuit)
			systray.Quit()
			return
		}
	}
}

// State returns the state currently shown
func (m *Manager) State() State {
	m.stateMutex.RLock()
	defer m.stateMutex.RUnlock()
	return m.state
}

// Update shows a controller status. It reports whether anything changed.
func (m *Manager) Update(status recording.Status) bool {
	state := StateOf(status)

	m.stateMutex.Lock()
	defer m.stateMutex.Unlock()

	if state == m.state && status.Duration == m.seconds {
		return false
	}
	m.state = state
	m.seconds = status.Duration
	m.render()
	return true
}

// render pushes the current state to systray. Caller holds stateMutex.
func (m *Manager) render() {
	if !m.ready {
		return
	}

	systray.SetIcon(m.icons[m.state])
	systray.SetTooltip(Tooltip(m.state, m.seconds))

	m.menuPause.SetTitle(PauseTitle(m.state))
	if m.state == StateIdle {
		m.menuStart.Enable()
		m.menuPause.Disable()
		m.menuStop.Disable()
		m.menuCancel.Disable()
	} else {
		m.menuStart.Disable()
		m.menuPause.Enable()
		m.menuStop.Enable()
		m.menuCancel.Enable()
	}
}

// StatusSource provides the status to display
type StatusSource interface {
	Status() recording.Status
}

// Watch refreshes the tray from src every interval until ctx is done
func (m *Manager) Watch(ctx context.Context, src StatusSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Update(src.Status())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Update(src.Status())
		}
	}
}

// Device represents an audio device for the menu
type Device struct {
	ID        int
	Name      string
	IsDefault bool
	IsCurrent bool
}

// DeviceLabel returns the menu label for a device
func DeviceLabel(d Device) string {
	if d.IsCurrent {
		return "✓ " + d.Name
	}
	return d.Name
}

// UpdateDeviceMenu replaces the device submenu
func (m *Manager) UpdateDeviceMenu(devices []Device) {
	for _, cancel := range m.deviceCancelFuncs {
		cancel()
	}
	m.deviceCancelFuncs = nil

	for _, item := range m.deviceMenuItems {
		item.Hide()
	}
	m.deviceMenuItems = nil

	for _, device := range devices {
		tooltip := ""
		if device.IsDefault {
			tooltip = "System default device"
		}

		item := m.menuDevices.AddSubMenuItem(DeviceLabel(device), tooltip)
		m.deviceMenuItems = append(m.deviceMenuItems, item)

		ctx, cancel := context.WithCancel(context.Background())
		m.deviceCancelFuncs = append(m.deviceCancelFuncs, cancel)

		go func(ctx context.Context, id int, item *systray.MenuItem) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-item.ClickedCh:
					if m.config.OnDeviceChange != nil {
						m.config.OnDeviceChange(id)
					}
				}
			}
		}(ctx, device.ID, item)
	}
}

// Quit quits the system tray
func (m *Manager) Quit() {
	systray.Quit()
}

// loadIcon reads assets/icon/<name> next to the executable and falls back to
// a generated dot in the given color.
func (m *Manager) loadIcon(name string, fallback iconColor) []byte {
	exe, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exe), "assets", "icon", name)
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
		m.log.Debug("Icon %s not found, using generated icon", path)
	}

	data, err := renderDot(fallback)
	if err != nil {
		m.log.Warn("Failed to render icon: %v", err)
		return nil
	}
	return data
}

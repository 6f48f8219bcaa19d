package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/wav"
)

// State represents the current recording state
type State int

const (
	// Idle means no session is active
	Idle State = iota
	// Recording means frames are being captured
	Recording
	// Paused means the device is open but frames are dropped
	Paused
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// EncodedAudio is a complete WAV file, or empty when nothing was captured
type EncodedAudio []byte

// Status is a snapshot of the controller state
type Status struct {
	State           string  `json:"state"`
	IsRecording     bool    `json:"is_recording"`
	IsPaused        bool    `json:"is_paused"`
	Duration        int     `json:"duration"`
	SampledDuration float64 `json:"sampled_duration"`
	Error           string  `json:"error,omitempty"`
	Text            string  `json:"text,omitempty"`
	SessionID       string  `json:"session_id,omitempty"`
}

// Config holds configuration for the capture controller
type Config struct {
	SampleRate int
	BufferSize int
	DeviceID   int

	// MaxDuration stops the session automatically, 0 disables the limit
	MaxDuration time.Duration

	// OnTranscriptionComplete receives the encoded audio of every non-empty Stop
	OnTranscriptionComplete func(EncodedAudio)
	// OnSessionComplete is OnTranscriptionComplete with the ID of the session
	// the audio belongs to
	OnSessionComplete func(sessionID string, audio EncodedAudio)
	// OnError receives the message of every failed Start or encode
	OnError func(message string)
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		SampleRate: wav.DefaultSampleRate,
		BufferSize: 4096,
		DeviceID:   -1,
	}
}

// Controller owns one capture session at a time
type Controller struct {
	source audio.Source
	config Config
	log    *logger.Logger

	mu        sync.Mutex
	state     State
	stream    audio.Stream
	frames    Accumulator
	duration  int
	lastErr   string
	text      string
	sessionID string
	tickDone  chan struct{}

	// active gates the frame callback without taking mu
	active atomic.Bool
}

// New creates a new capture controller
func New(source audio.Source, config Config, log *logger.Logger) *Controller {
	defaults := DefaultConfig()
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Controller{
		source: source,
		config: config,
		log:    log,
		state:  Idle,
	}
}

// Start opens the input device and begins a new session.
// It is a no-op while a session is already active.
func (c *Controller) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if state := c.state; state != Idle {
		c.mu.Unlock()
		c.log.Debug("Start ignored: session already %s", state)
		return nil
	}

	err := c.startLocked()
	if err != nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error("Failed to start recording: %v", err)
		c.notifyError(err.Error())
		return err
	}

	return nil
}

func (c *Controller) startLocked() error {
	c.frames.Reset()
	c.duration = 0
	c.lastErr = ""
	c.text = ""

	cfg := c.audioConfig()
	if cfg.EchoCancellation || cfg.NoiseSuppression || cfg.AutoGainControl {
		c.log.Debug("Input processing requested (ec=%t ns=%t agc=%t) but not applied by backend",
			cfg.EchoCancellation, cfg.NoiseSuppression, cfg.AutoGainControl)
	}

	stream, err := c.source.Open(cfg, c.ingest)
	if err != nil {
		return classify(err)
	}
	c.stream = stream

	c.active.Store(true)
	if err := stream.Start(); err != nil {
		c.active.Store(false)
		if terr := c.teardownLocked(); terr != nil {
			c.log.Warn("Teardown after failed start: %v", terr)
		}
		return classify(err)
	}

	c.state = Recording
	c.sessionID = uuid.NewString()
	c.startTickerLocked()

	c.log.Info("Recording started (session=%s, rate=%d, buffer=%d)", c.sessionID, cfg.SampleRate, cfg.BufferSize)
	return nil
}

func (c *Controller) audioConfig() audio.Config {
	cfg := audio.DefaultConfig()
	cfg.DeviceID = c.config.DeviceID
	cfg.SampleRate = c.config.SampleRate
	cfg.BufferSize = c.config.BufferSize
	return cfg
}

func classify(err error) error {
	if errors.Is(err, audio.ErrNoDevice) {
		return &DeviceAccessError{Err: err}
	}
	return &DeviceInitError{Err: err}
}

// ingest is the frame callback handed to the backend
func (c *Controller) ingest(in []float32) {
	if !c.active.Load() {
		return
	}
	c.frames.Append(in)
}

// Pause stops the duration ticker and drops incoming frames.
// The device stays open. It is a no-op unless recording.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		return
	}

	c.active.Store(false)
	c.stopTickerLocked()
	c.state = Paused
	c.log.Info("Recording paused at %s", FormatDuration(c.duration))
}

// Resume continues a paused session. It is a no-op unless paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Paused {
		return
	}

	c.active.Store(true)
	c.startTickerLocked()
	c.state = Recording
	c.log.Info("Recording resumed at %s", FormatDuration(c.duration))
}

// Stop ends the session and returns the captured audio as WAV.
// The result is empty when no frames were captured or no session was active.
func (c *Controller) Stop() (EncodedAudio, error) {
	return c.stopSession("")
}

// stopSession stops the session with the given ID, or the current one when
// id is empty. A session that already ended is left alone.
func (c *Controller) stopSession(id string) (EncodedAudio, error) {
	c.mu.Lock()
	if c.state == Idle || (id != "" && c.sessionID != id) {
		c.mu.Unlock()
		return EncodedAudio{}, nil
	}

	c.active.Store(false)
	c.stopTickerLocked()
	teardownErr := c.teardownLocked()

	samples := c.frames.Flatten()
	c.frames.Reset()
	c.state = Idle
	sessionID := c.sessionID
	sampleRate := c.config.SampleRate
	c.mu.Unlock()

	if teardownErr != nil {
		c.log.Warn("Teardown incomplete: %v", teardownErr)
	}

	data, err := wav.Encode(samples, sampleRate)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.log.Error("Failed to encode recording %s: %v", sessionID, err)
		c.notifyError(err.Error())
		return EncodedAudio{}, err
	}

	c.log.Info("Recording stopped (session=%s, samples=%d, bytes=%d)", sessionID, len(samples), len(data))

	if len(data) > 0 {
		if c.config.OnTranscriptionComplete != nil {
			c.config.OnTranscriptionComplete(EncodedAudio(data))
		}
		if c.config.OnSessionComplete != nil {
			c.config.OnSessionComplete(sessionID, EncodedAudio(data))
		}
	}

	return EncodedAudio(data), nil
}

// Cancel ends the session and discards everything captured. Duration, error
// and text are reset. It is safe to call in any state.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	c.active.Store(false)
	c.stopTickerLocked()
	err := c.teardownLocked()

	c.frames.Reset()
	wasActive := c.state != Idle
	c.state = Idle
	c.duration = 0
	c.lastErr = ""
	c.text = ""
	c.sessionID = ""
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("Teardown incomplete: %v", err)
	}
	if wasActive {
		c.log.Info("Recording cancelled")
	}

	return err
}

// Close releases the device when the owner shuts down
func (c *Controller) Close() error {
	return c.Cancel()
}

// teardownLocked stops and closes the stream. Every step runs even if an
// earlier one failed.
func (c *Controller) teardownLocked() error {
	if c.stream == nil {
		return nil
	}

	var err error
	if stopErr := c.stream.Stop(); stopErr != nil {
		err = multierr.Append(err, fmt.Errorf("stop stream: %w", stopErr))
	}
	if closeErr := c.stream.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("close stream: %w", closeErr))
	}
	c.stream = nil

	return err
}

func (c *Controller) startTickerLocked() {
	done := make(chan struct{})
	c.tickDone = done
	go c.runTicker(done)
}

func (c *Controller) stopTickerLocked() {
	if c.tickDone != nil {
		close(c.tickDone)
		c.tickDone = nil
	}
}

func (c *Controller) runTicker(done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.advance(done)
		}
	}
}

// tick advances the ticker that is currently running
func (c *Controller) tick() {
	c.mu.Lock()
	done := c.tickDone
	c.mu.Unlock()
	c.advance(done)
}

// advance adds one second on behalf of the ticker identified by done. Ticks
// from a ticker that was replaced by Pause and Resume are ignored.
func (c *Controller) advance(done chan struct{}) {
	c.mu.Lock()
	if c.state != Recording || done == nil || c.tickDone != done {
		c.mu.Unlock()
		return
	}
	c.duration++
	limitReached := c.config.MaxDuration > 0 &&
		time.Duration(c.duration)*time.Second >= c.config.MaxDuration
	sessionID := c.sessionID
	c.mu.Unlock()

	if limitReached {
		c.log.Info("Maximum recording time reached, stopping session %s", sessionID)
		go func() {
			if _, err := c.stopSession(sessionID); err != nil {
				c.log.Error("Auto-stop failed: %v", err)
			}
		}()
	}
}

// SetText stores the transcript of the last recording
func (c *Controller) SetText(text string) {
	c.SetSessionText("", text)
}

// SetError stores a failure reported by a downstream consumer
func (c *Controller) SetError(message string) {
	c.SetSessionError("", message)
}

// SetSessionText stores text only while sessionID is still the latest
// session. An empty sessionID always applies. It reports whether the text
// was stored.
func (c *Controller) SetSessionText(sessionID, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID != "" && sessionID != c.sessionID {
		return false
	}
	c.text = text
	return true
}

// SetSessionError is SetSessionText for the error field
func (c *Controller) SetSessionError(sessionID, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID != "" && sessionID != c.sessionID {
		return false
	}
	c.lastErr = message
	return true
}

// State returns the current recording state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the observable state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		State:           c.state.String(),
		IsRecording:     c.state != Idle,
		IsPaused:        c.state == Paused,
		Duration:        c.duration,
		SampledDuration: wav.Duration(c.frames.Len(), c.config.SampleRate),
		Error:           c.lastErr,
		Text:            c.text,
		SessionID:       c.sessionID,
	}
}

// SetDevice selects the input device used by the next Start
func (c *Controller) SetDevice(id int) {
	c.mu.Lock()
	c.config.DeviceID = id
	c.mu.Unlock()
}

// Device returns the selected input device ID, -1 for the system default
func (c *Controller) Device() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.DeviceID
}

// SampleRate returns the configured capture rate
func (c *Controller) SampleRate() int {
	return c.config.SampleRate
}

func (c *Controller) notifyError(message string) {
	if c.config.OnError != nil {
		c.config.OnError(message)
	}
}

// FormatDuration renders whole seconds as M:SS. Minutes are not wrapped
// into hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

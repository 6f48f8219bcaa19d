// Package api exposes the capture controller, the recording archive and the
// current settings as a JSON API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yok-tottii/EzRec/internal/archive"
	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/hotkey"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/wav"
)

// Recorder is the capture controller surface used by the API
type Recorder interface {
	Start(ctx context.Context) error
	Pause()
	Resume()
	Stop() (recording.EncodedAudio, error)
	Cancel() error
	Status() recording.Status
}

// DeviceLister lists input devices
type DeviceLister interface {
	ListDevices() ([]audio.Device, error)
}

// Archive is the stored recordings surface used by the API
type Archive interface {
	List() ([]archive.Recording, error)
	Get(id string) (archive.Recording, error)
	Path(id string) (string, error)
	Delete(id string) error
}

// Settings hands out copies of the current configuration
type Settings interface {
	Snapshot() *config.Config
}

// Handler manages API endpoints
type Handler struct {
	recorder Recorder
	devices  DeviceLister
	archive  Archive
	settings Settings
	log      *logger.Logger
}

// New creates a new API handler
func New(rec Recorder, devices DeviceLister, store Archive, settings Settings, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		recorder: rec,
		devices:  devices,
		archive:  store,
		settings: settings,
		log:      log,
	}
}

// RegisterRoutes registers all API routes under /api
func (h *Handler) RegisterRoutes(engine gin.IRouter) {
	api := engine.Group("/api")
	{
		api.GET("/recording", h.getRecording)
		api.POST("/recording/start", h.startRecording)
		api.POST("/recording/pause", h.pauseRecording)
		api.POST("/recording/resume", h.resumeRecording)
		api.POST("/recording/stop", h.stopRecording)
		api.POST("/recording/cancel", h.cancelRecording)

		api.GET("/devices", h.listDevices)

		api.GET("/recordings", h.listRecordings)
		api.GET("/recordings/:id", h.downloadRecording)
		api.DELETE("/recordings/:id", h.deleteRecording)

		api.GET("/settings", h.getSettings)
		api.POST("/hotkey/validate", h.validateHotkey)
	}
}

// RecordingStatus is the body of GET /api/recording
type RecordingStatus struct {
	recording.Status
	FormattedDuration string `json:"formatted_duration"`
}

// StopResult is the body of POST /api/recording/stop
type StopResult struct {
	Bytes   int `json:"bytes"`
	Samples int `json:"samples"`
}

func (h *Handler) status() RecordingStatus {
	status := h.recorder.Status()
	return RecordingStatus{
		Status:            status,
		FormattedDuration: recording.FormatDuration(status.Duration),
	}
}

func (h *Handler) getRecording(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

func (h *Handler) startRecording(c *gin.Context) {
	if err := h.recorder.Start(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.status())
}

func (h *Handler) pauseRecording(c *gin.Context) {
	h.recorder.Pause()
	c.JSON(http.StatusOK, h.status())
}

func (h *Handler) resumeRecording(c *gin.Context) {
	h.recorder.Resume()
	c.JSON(http.StatusOK, h.status())
}

func (h *Handler) stopRecording(c *gin.Context) {
	data, err := h.recorder.Stop()
	if err != nil {
		h.fail(c, err)
		return
	}

	samples := 0
	if len(data) > wav.HeaderSize {
		samples = (len(data) - wav.HeaderSize) / 2
	}
	c.JSON(http.StatusOK, StopResult{Bytes: len(data), Samples: samples})
}

func (h *Handler) cancelRecording(c *gin.Context) {
	if err := h.recorder.Cancel(); err != nil {
		// teardown problems are logged by the controller; the session is gone either way
		h.log.Warn("Cancel reported: %v", err)
	}
	c.JSON(http.StatusOK, h.status())
}

// Device represents an audio device
type Device struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func convertAudioDevices(audioDevices []audio.Device) []Device {
	devices := make([]Device, 0, len(audioDevices))
	for _, dev := range audioDevices {
		devices = append(devices, Device{
			ID:        dev.ID,
			Name:      dev.Name,
			IsDefault: dev.IsDefault,
		})
	}
	return devices
}

func (h *Handler) listDevices(c *gin.Context) {
	if h.devices == nil {
		c.JSON(http.StatusOK, gin.H{"devices": []Device{{ID: -1, Name: "System Default", IsDefault: true}}})
		return
	}

	devices, err := h.devices.ListDevices()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": convertAudioDevices(devices)})
}

func (h *Handler) listRecordings(c *gin.Context) {
	recordings, err := h.archive.List()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recordings})
}

func (h *Handler) downloadRecording(c *gin.Context) {
	id := c.Param("id")

	path, err := h.archive.Path(id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "audio/wav")
	c.FileAttachment(path, id+".wav")
}

func (h *Handler) deleteRecording(c *gin.Context) {
	if err := h.archive.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Snapshot())
}

func (h *Handler) validateHotkey(c *gin.Context) {
	var request config.HotkeyConfig
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	binding, err := hotkey.FromConfig(request, h.settings.Snapshot().RecordingMode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hotkey":    hotkey.FormatHotkey(binding.Modifiers, binding.Key),
		"conflicts": hotkey.Names(hotkey.CheckConflicts(binding.Modifiers, binding.Key)),
	})
}

// StatusCode maps an error onto an HTTP status
func StatusCode(err error) int {
	var encErr *wav.EncodingError
	switch {
	case errors.Is(err, recording.ErrDeviceAccess), errors.Is(err, recording.ErrDeviceInit):
		return http.StatusServiceUnavailable
	case errors.As(err, &encErr):
		return http.StatusInternalServerError
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, archive.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

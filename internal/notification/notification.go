package notification

import (
	"fmt"
	"os/exec"
	"strings"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeWarning is a warning notification
	TypeWarning NotificationType = "warning"
	// TypeError is an error notification
	TypeError NotificationType = "error"
	// TypeSuccess is a success notification
	TypeSuccess NotificationType = "success"
)

// Notification represents a desktop notification
type Notification struct {
	Title    string
	Subtitle string
	Message  string
	Type     NotificationType
}

// NotificationManager handles sending notifications to the user
type NotificationManager struct {
	appName string
	enabled bool
	run     func(script string) error
}

// NewNotificationManager creates a new notification manager.
// A disabled manager accepts every call and sends nothing.
func NewNotificationManager(appName string, enabled bool) *NotificationManager {
	return &NotificationManager{
		appName: appName,
		enabled: enabled,
		run:     runOSAScript,
	}
}

func runOSAScript(script string) error {
	return exec.Command("osascript", "-e", script).Run()
}

// quote renders s as an AppleScript string literal
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Script returns the AppleScript that displays n
func Script(n *Notification) string {
	script := fmt.Sprintf("display notification %s with title %s", quote(n.Message), quote(n.Title))
	if n.Subtitle != "" {
		script += " subtitle " + quote(n.Subtitle)
	}
	return script
}

// Send sends a notification via the macOS notification center
func (nm *NotificationManager) Send(notification *Notification) error {
	if notification == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if !nm.enabled {
		return nil
	}

	if err := nm.run(Script(notification)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	return nil
}

func (nm *NotificationManager) send(t NotificationType, message string) error {
	return nm.Send(&Notification{
		Title:   nm.appName,
		Message: message,
		Type:    t,
	})
}

// RecordingStarted sends a notification that recording has started
func (nm *NotificationManager) RecordingStarted() error {
	return nm.send(TypeInfo, "Recording started")
}

// RecordingStopped sends a notification that recording has stopped
func (nm *NotificationManager) RecordingStopped(duration string) error {
	return nm.send(TypeInfo, "Recording stopped ("+duration+")")
}

// RecordingSaved sends a notification that a recording was archived
func (nm *NotificationManager) RecordingSaved(duration string) error {
	return nm.send(TypeSuccess, "Recording saved ("+duration+")")
}

// TranscriptionComplete sends a notification with the start of the transcript
func (nm *NotificationManager) TranscriptionComplete(text string) error {
	return nm.Send(&Notification{
		Title:    nm.appName,
		Subtitle: "Transcription complete",
		Message:  preview(text, 80),
		Type:     TypeSuccess,
	})
}

// RecordingFailed sends a notification that recording failed
func (nm *NotificationManager) RecordingFailed(reason string) error {
	return nm.send(TypeError, withReason("Recording failed", reason))
}

// TranscriptionFailed sends a notification that transcription failed
func (nm *NotificationManager) TranscriptionFailed(reason string) error {
	return nm.send(TypeError, withReason("Transcription failed", reason))
}

// MicrophonePermissionDenied sends a notification that microphone permission is denied
func (nm *NotificationManager) MicrophonePermissionDenied() error {
	return nm.send(TypeError, "Microphone access was denied. Allow it in System Settings > Privacy & Security.")
}

// RecordingTimeExceeded sends a notification that the recording hit the time limit
func (nm *NotificationManager) RecordingTimeExceeded(limit string) error {
	return nm.send(TypeWarning, "Recording reached "+limit+" and was stopped automatically.")
}

func withReason(message, reason string) string {
	if reason == "" {
		return message
	}
	return message + ": " + reason
}

func preview(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}

// Package permissions checks the microphone authorization before a capture
// stream is opened, so a denial is reported as a device access failure.
package permissions

import (
	"fmt"
	"os/exec"

	"github.com/yok-tottii/EzRec/internal/audio"
)

// PermissionStatus represents the status of a system permission
type PermissionStatus int

const (
	// PermissionNotDetermined means the user hasn't been asked yet
	PermissionNotDetermined PermissionStatus = 0
	// PermissionRestricted means the permission is restricted by device policy
	PermissionRestricted PermissionStatus = 1
	// PermissionDenied means the user has explicitly denied the permission
	PermissionDenied PermissionStatus = 2
	// PermissionAuthorized means the user has authorized the permission
	PermissionAuthorized PermissionStatus = 3
)

// String returns the string representation of the status
func (ps PermissionStatus) String() string {
	switch ps {
	case PermissionNotDetermined:
		return "NotDetermined"
	case PermissionRestricted:
		return "Restricted"
	case PermissionDenied:
		return "Denied"
	case PermissionAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}

// Blocked reports whether capture must not be attempted
func (ps PermissionStatus) Blocked() bool {
	return ps == PermissionDenied || ps == PermissionRestricted
}

// Checker reports the microphone authorization
type Checker interface {
	MicrophoneStatus() PermissionStatus
}

// SystemChecker asks the operating system
type SystemChecker struct{}

// NewSystemChecker creates a new permission checker
func NewSystemChecker() *SystemChecker {
	return &SystemChecker{}
}

// OpenMicrophoneSettings opens the microphone pane of System Settings
func OpenMicrophoneSettings() error {
	url := "x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone"
	return exec.Command("open", url).Run()
}

// GatedSource refuses to open streams while the microphone is blocked
type GatedSource struct {
	audio.Source
	checker Checker
}

// Gate wraps source with a permission check on Open
func Gate(source audio.Source, checker Checker) *GatedSource {
	return &GatedSource{Source: source, checker: checker}
}

// Open checks the permission and delegates to the wrapped source
func (g *GatedSource) Open(config audio.Config, onFrame audio.FrameHandler) (audio.Stream, error) {
	if status := g.checker.MicrophoneStatus(); status.Blocked() {
		return nil, fmt.Errorf("%w: microphone permission %s", audio.ErrNoDevice, status)
	}
	return g.Source.Open(config, onFrame)
}

//go:build !darwin

package permissions

// MicrophoneStatus always reports Authorized; access problems surface when
// the device is opened.
func (pc *SystemChecker) MicrophoneStatus() PermissionStatus {
	return PermissionAuthorized
}

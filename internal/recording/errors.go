package recording

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceAccess matches any DeviceAccessError via errors.Is
	ErrDeviceAccess = errors.New("microphone access denied or no input device")
	// ErrDeviceInit matches any DeviceInitError via errors.Is
	ErrDeviceInit = errors.New("failed to initialize audio capture")
)

// DeviceAccessError is returned by Start when the input device cannot be
// acquired: permission was denied or no device exists.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	if e.Err == nil {
		return ErrDeviceAccess.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDeviceAccess, e.Err)
}

func (e *DeviceAccessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeviceAccess}
	}
	return []error{ErrDeviceAccess, e.Err}
}

// DeviceInitError is returned by Start when the device was acquired but the
// capture stream could not be built or started.
type DeviceInitError struct {
	Err error
}

func (e *DeviceInitError) Error() string {
	if e.Err == nil {
		return ErrDeviceInit.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDeviceInit, e.Err)
}

func (e *DeviceInitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDeviceInit}
	}
	return []error{ErrDeviceInit, e.Err}
}

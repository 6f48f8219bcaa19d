//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c -fmodules
#cgo LDFLAGS: -framework AVFoundation

#import <AVFoundation/AVFoundation.h>

int ezrec_microphone_status() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}
*/
import "C"

// MicrophoneStatus queries AVFoundation for the microphone authorization
func (pc *SystemChecker) MicrophoneStatus() PermissionStatus {
	return PermissionStatus(C.ezrec_microphone_status())
}

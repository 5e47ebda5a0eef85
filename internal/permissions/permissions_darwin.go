//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"time"
)

const (
	PermissionNotDetermined = 0
	PermissionRestricted    = 1
	PermissionDenied        = 2
	PermissionAuthorized    = 3
)

// pollInterval is how often the authorization status is re-read while the
// system dialog is open.
const pollInterval = 250 * time.Millisecond

// Microphone returns nil once capture is authorized. When the user has not
// decided yet it shows the system dialog and waits for the answer or ctx.
func Microphone(ctx context.Context) error {
	if done, err := microphoneDecision(); done {
		return err
	}

	C.requestMicrophonePermission()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done, err := microphoneDecision(); done {
				return err
			}
		}
	}
}

func microphoneDecision() (bool, error) {
	switch status := int(C.checkMicrophonePermission()); status {
	case PermissionAuthorized:
		return true, nil
	case PermissionDenied, PermissionRestricted:
		return true, fmt.Errorf("%w (status %d)", ErrDenied, status)
	default:
		return false, nil
	}
}

// Accessibility reports whether global hotkeys can be registered, prompting
// the user if they cannot.
func Accessibility() bool {
	return int(C.checkAccessibilityPermission()) == 1
}

//go:build !darwin

package permissions

import "context"

// Microphone is a no-op on platforms without a capture permission prompt.
// Denial there surfaces when the device is opened.
func Microphone(ctx context.Context) error {
	return ctx.Err()
}

// Accessibility is always granted outside macOS.
func Accessibility() bool {
	return true
}

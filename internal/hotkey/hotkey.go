package hotkey

import "errors"

var ErrUnsupported = errors.New("global hotkeys are not supported on this platform")

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// OnPress adapts a plain action to a Register callback; releases are ignored.
func OnPress(action func()) func(pressed bool) {
	return func(pressed bool) {
		if pressed {
			action()
		}
	}
}

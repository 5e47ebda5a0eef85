//go:build !linux && !darwin

package hotkey

func New() (Manager, error) {
	return nil, ErrUnsupported
}

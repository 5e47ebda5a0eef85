package mic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestOverflowKeepsStreamAlive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no error", nil, false},
		{"input overflow", portaudio.InputOverflowed, true},
		{"wrapped overflow", fmt.Errorf("read: %w", portaudio.InputOverflowed), true},
		{"device gone", portaudio.DeviceUnavailable, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overflowed(tt.err); got != tt.want {
				t.Errorf("overflowed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

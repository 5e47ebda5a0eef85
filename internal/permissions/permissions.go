package permissions

import "errors"

// ErrDenied means the user or a policy refused microphone access
var ErrDenied = errors.New("microphone access not authorized")

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps recordings as files in one directory
type FSStore struct {
	dir string
}

// NewFS creates dir if needed
func NewFS(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("storage directory not set")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FSStore{dir: abs}, nil
}

func (s *FSStore) Dir() string {
	return s.dir
}

// Save writes the file, replacing any file of the same name. The reference
// is the absolute path.
func (s *FSStore) Save(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Name: "AbortError", Message: err.Error(), Err: err}
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", &Error{Name: "InvalidNameError", Message: fmt.Sprintf("invalid name %q", name)}
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &Error{Name: fsErrorName(err), Message: err.Error(), Err: err}
	}
	return path, nil
}

func fsErrorName(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "SecurityError"
	case errors.Is(err, fs.ErrNotExist):
		return "NotFoundError"
	default:
		return "UnknownError"
	}
}

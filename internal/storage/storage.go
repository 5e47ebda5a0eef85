// Package storage persists finished recordings as named blobs.
package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Store is a named-blob store. Save writes data under name and returns a
// reference to the stored object. Failures are *Error.
type Store interface {
	Save(ctx context.Context, data []byte, name string) (string, error)
}

// Error is a failed save, reported by error code and message
type Error struct {
	Name    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

const FilePrefix = "captured-"

// FileName builds captured-<year>-<month>-<day>-<hour><minute>.<ext> from
// the local time t. In legacy mode year counts from 1900 and month is
// zero-based, which is what already-stored recordings are named after.
// Two recordings within the same minute get the same name.
func FileName(t time.Time, ext string, legacy bool) string {
	year, month := t.Year(), int(t.Month())
	if legacy {
		year -= 1900
		month--
	}
	return FilePrefix + strconv.Itoa(year) + "-" +
		formatDigit(month) + "-" +
		formatDigit(t.Day()) + "-" +
		formatDigit(t.Hour()) + formatDigit(t.Minute()) + "." + ext
}

func formatDigit(d int) string {
	if d > -1 && d < 10 {
		return "0" + strconv.Itoa(d)
	}
	return strconv.Itoa(d)
}

// Config selects and configures a backend
type Config struct {
	Backend  string // "fs", "s3" or "gcs"
	Dir      string
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Open initializes the configured backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg)
	case "gcs":
		return NewGCS(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore writes each recording as one Cloud Storage object
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCS uses application default credentials
func NewGCS(ctx context.Context, cfg Config) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs storage requires a bucket")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{bucket: client.Bucket(cfg.Bucket), name: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) Save(ctx context.Context, data []byte, name string) (string, error) {
	object := s.prefix + name
	w := s.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType(name)

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", gcsError(err)
	}
	if err := w.Close(); err != nil {
		return "", gcsError(err)
	}
	return "gs://" + s.name + "/" + object, nil
}

func gcsError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		name := http.StatusText(apiErr.Code)
		if name == "" {
			name = strconv.Itoa(apiErr.Code)
		}
		return &Error{Name: name, Message: apiErr.Message, Err: err}
	}
	return &Error{Name: "UnknownError", Message: err.Error(), Err: err}
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

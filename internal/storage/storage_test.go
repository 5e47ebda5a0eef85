package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestFileName(t *testing.T) {
	at := time.Date(2024, time.March, 7, 9, 5, 0, 0, time.Local)

	tests := []struct {
		name   string
		t      time.Time
		legacy bool
		want   string
	}{
		{"legacy", at, true, "captured-124-02-07-0905.ogg"},
		{"calendar", at, false, "captured-2024-03-07-0905.ogg"},
		{"january legacy", time.Date(2025, time.January, 31, 23, 59, 0, 0, time.Local), true, "captured-125-00-31-2359.ogg"},
		{"december calendar", time.Date(2025, time.December, 1, 0, 0, 0, 0, time.Local), false, "captured-2025-12-01-0000.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.t, "ogg", tt.legacy))
		})
	}
}

func TestFileNameSameMinuteCollides(t *testing.T) {
	a := time.Date(2024, time.March, 7, 9, 5, 1, 0, time.Local)
	b := time.Date(2024, time.March, 7, 9, 5, 58, 0, time.Local)
	assert.Equal(t, FileName(a, "ogg", true), FileName(b, "ogg", true))
}

func TestFileNamePattern(t *testing.T) {
	pattern := regexp.MustCompile(`^captured-\d+-\d{2}-\d{2}-\d{4}\.ogg$`)
	assert.Regexp(t, pattern, FileName(time.Now(), "ogg", true))
}

func TestFormatDigit(t *testing.T) {
	assert.Equal(t, "00", formatDigit(0))
	assert.Equal(t, "09", formatDigit(9))
	assert.Equal(t, "10", formatDigit(10))
	assert.Equal(t, "59", formatDigit(59))
}

func TestFSStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	store, err := NewFS(dir)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), []byte("first"), "a.ogg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "a.ogg"), ref)
	assert.True(t, filepath.IsAbs(ref))

	_, err = store.Save(context.Background(), []byte("second"), "a.ogg")
	require.NoError(t, err)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFSStoreRejectsBadNames(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.ogg", "sub/dir.ogg", ".hidden"} {
		_, err := store.Save(context.Background(), []byte("x"), name)
		var storeErr *Error
		require.ErrorAs(t, err, &storeErr, name)
		assert.Equal(t, "InvalidNameError", storeErr.Name)
	}
}

func TestFSStoreWriteFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFS(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	_, err = store.Save(context.Background(), []byte("x"), "a.ogg")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "NotFoundError", storeErr.Name)
	assert.NotEmpty(t, storeErr.Message)
}

func TestFSStoreCancelledContext(t *testing.T) {
	store, err := NewFS(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, []byte("x"), "a.ogg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFSRequiresDir(t *testing.T) {
	_, err := NewFS("")
	assert.Error(t, err)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreSave(t *testing.T) {
	client := &fakeS3{}
	store := &S3Store{client: client, bucket: "audio", prefix: "mic/"}

	ref, err := store.Save(context.Background(), []byte("data"), "a.ogg")
	require.NoError(t, err)
	assert.Equal(t, "s3://audio/mic/a.ogg", ref)
	assert.Equal(t, "mic/a.ogg", aws.ToString(client.input.Key))
	assert.Equal(t, "audio/ogg", aws.ToString(client.input.ContentType))
}

func TestS3StoreMapsAPIError(t *testing.T) {
	client := &fakeS3{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "no write access"}}
	store := &S3Store{client: client, bucket: "audio"}

	_, err := store.Save(context.Background(), []byte("data"), "a.ogg")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "AccessDenied", storeErr.Name)
	assert.Equal(t, "no write access", storeErr.Message)
}

func TestS3StoreOtherError(t *testing.T) {
	store := &S3Store{client: &fakeS3{err: errors.New("dial tcp: timeout")}, bucket: "audio"}

	_, err := store.Save(context.Background(), []byte("data"), "a.ogg")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "UnknownError", storeErr.Name)
}

func TestGCSErrorMapping(t *testing.T) {
	err := gcsError(&googleapi.Error{Code: 403, Message: "forbidden bucket"})
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "Forbidden", storeErr.Name)
	assert.Equal(t, "forbidden bucket", storeErr.Message)

	err = gcsError(errors.New("boom"))
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "UnknownError", storeErr.Name)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "ftp"})
	assert.Error(t, err)

	store, err := Open(context.Background(), Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, store)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "audio/ogg", contentType("a.ogg"))
	assert.Equal(t, "audio/wav", contentType("a.wav"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}

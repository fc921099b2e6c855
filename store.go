package docrender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore writes objects to durable storage. Writing an existing key
// overwrites it. Implementations must be safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
}

// Compile-time interface checks
var (
	_ ObjectStore = (*GCSStore)(nil)
	_ ObjectStore = (*FileStore)(nil)
)

// ErrInvalidObjectPath is returned when a bucket or key would escape the
// store root.
var ErrInvalidObjectPath = errors.New("invalid object path")

// GCSStore writes objects to Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a storage client. Pass option.WithEndpoint to target
// an emulator.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Put streams body into bucket/key. A failed copy aborts the upload, so no
// partial object is committed.
func (s *GCSStore) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	return putObject(ctx, body, func(ctx context.Context) objectWriter {
		w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		return w
	})
}

// objectWriter is the part of *storage.Writer used by putObject.
type objectWriter interface {
	io.Writer
	Close() error
}

// putObject copies body into a writer opened on a cancelable context.
// Canceling that context before Close discards the upload.
func putObject(ctx context.Context, body io.Reader, open func(context.Context) objectWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(ctx)
	if _, err := io.Copy(w, body); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// FileStore writes objects below a local directory as {root}/{bucket}/{key}.
// It backs offline CLI runs and tests.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Path returns the file that backs bucket/key.
func (s *FileStore) Path(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidObjectPath, bucket)
	}
	base := filepath.Join(s.root, bucket)
	path := filepath.Join(base, filepath.FromSlash(key))
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q", ErrInvalidObjectPath, key)
	}
	return path, nil
}

// Put writes body to a temp file and renames it into place, so readers never
// see a partial artifact.
func (s *FileStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".docrender-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move object into place: %w", err)
	}
	return nil
}

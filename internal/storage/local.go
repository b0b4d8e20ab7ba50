package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a directory that the server exposes at PublicURL.
type LocalStore struct {
	Dir       string
	PublicURL string
}

// NewLocalStore creates a LocalStore.
func NewLocalStore(dir, publicURL string) *LocalStore {
	return &LocalStore{Dir: dir, PublicURL: strings.TrimSuffix(publicURL, "/")}
}

// Upload writes body to <Dir>/<bucket>/<name>. Existing objects are never overwritten.
func (s *LocalStore) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (Object, error) {
	if err := checkObject(bucket, name); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	dir := filepath.Join(s.Dir, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create object: %w", err)
	}
	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to write object: %w", err)
	}

	return Object{
		Bucket:      bucket,
		Name:        name,
		URL:         s.PublicURL + "/" + bucket + "/" + name,
		Size:        n,
		ContentType: contentType,
	}, nil
}

// Delete removes an object. A missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, bucket, name string) error {
	if err := checkObject(bucket, name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, bucket, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Locate accepts URLs under PublicURL.
func (s *LocalStore) Locate(publicURL string) (string, string, bool) {
	rest, ok := strings.CutPrefix(publicURL, s.PublicURL+"/")
	if !ok {
		return "", "", false
	}
	return splitObject(rest)
}

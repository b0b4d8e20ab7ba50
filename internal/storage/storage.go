// Package storage uploads files to public object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"valour-site/internal/config"
)

// Buckets.
const (
	BucketImages    = "images"
	BucketDocuments = "documents"
)

var (
	// ErrUnknownBucket is returned for a bucket other than images or documents.
	ErrUnknownBucket = errors.New("unknown bucket")
	// ErrInvalidName is returned for object names that could escape the bucket.
	ErrInvalidName = errors.New("invalid object name")
)

// Object describes a stored file.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store is an object store with public read URLs.
type Store interface {
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (Object, error)
	Delete(ctx context.Context, bucket, name string) error
	// Locate maps a public URL back to its object. ok is false for URLs
	// this store did not hand out.
	Locate(publicURL string) (bucket, name string, ok bool)
}

// New builds the configured store.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.Dir, cfg.PublicURL), nil
	case "remote":
		if cfg.RemoteURL == "" || cfg.ServiceKey == "" {
			return nil, errors.New("remote storage needs storage.remote_url and storage.service_key")
		}
		return NewRemoteStore(cfg.RemoteURL, cfg.ServiceKey, &http.Client{Timeout: 60 * time.Second}), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// ObjectName returns a collision-resistant name for an uploaded file: a
// random token, the upload time in unix milliseconds and the original
// extension.
func ObjectName(original string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("%s_%d", token, time.Now().UnixMilli())
	if ext := strings.ToLower(filepath.Ext(original)); ext != "" && safeName(ext[1:]) == nil {
		name += ext
	}
	return name
}

// splitObject parses "<bucket>/<name>" as produced by the stores.
func splitObject(rest string) (bucket, name string, ok bool) {
	bucket, name, found := strings.Cut(rest, "/")
	if !found || checkObject(bucket, name) != nil {
		return "", "", false
	}
	return bucket, name, true
}

func checkObject(bucket, name string) error {
	switch bucket {
	case BucketImages, BucketDocuments:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	return safeName(name)
}

func safeName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

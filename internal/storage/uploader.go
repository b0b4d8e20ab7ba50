package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Uploader names uploads and downsizes oversized images before storing them.
type Uploader struct {
	store    Store
	maxWidth int
}

// NewUploader wraps store. A maxWidth of zero disables resizing.
func NewUploader(store Store, maxWidth int) *Uploader {
	return &Uploader{store: store, maxWidth: maxWidth}
}

// UploadImage stores an image in the images bucket under a fresh name.
// Images in a format imaging cannot decode are stored unchanged.
func (u *Uploader) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("failed to read image: %w", err)
	}
	if resized, ok := u.shrink(filename, raw); ok {
		raw = resized
	}
	return u.store.Upload(ctx, BucketImages, ObjectName(filename), contentType, bytes.NewReader(raw))
}

// UploadDocument stores a file in the documents bucket under a fresh name.
func (u *Uploader) UploadDocument(ctx context.Context, filename, contentType string, body io.Reader) (Object, error) {
	return u.store.Upload(ctx, BucketDocuments, ObjectName(filename), contentType, body)
}

// Discard deletes the object behind a public URL. URLs pointing elsewhere
// (pasted links, the other backend) are left alone.
func (u *Uploader) Discard(ctx context.Context, publicURL string) error {
	bucket, name, ok := u.store.Locate(publicURL)
	if !ok {
		return nil
	}
	return u.store.Delete(ctx, bucket, name)
}

func (u *Uploader) shrink(filename string, raw []byte) ([]byte, bool) {
	if u.maxWidth <= 0 {
		return nil, false
	}
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, false
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil || img.Bounds().Dx() <= u.maxWidth {
		return nil, false
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Resize(img, u.maxWidth, 0, imaging.Lanczos), format); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

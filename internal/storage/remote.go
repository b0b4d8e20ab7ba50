package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RemoteStore talks to a Supabase-compatible storage REST API using a
// service key.
type RemoteStore struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewRemoteStore creates a RemoteStore for the project at baseURL.
func NewRemoteStore(baseURL, serviceKey string, client *http.Client) *RemoteStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteStore{baseURL: strings.TrimSuffix(baseURL, "/"), serviceKey: serviceKey, client: client}
}

// Upload PUTs body to /storage/v1/object/<bucket>/<name>.
func (s *RemoteStore) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (Object, error) {
	if err := checkObject(bucket, name); err != nil {
		return Object{}, err
	}
	counted := &countingReader{r: body}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, counted)
	if err != nil {
		return Object{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")

	if err := s.do(req); err != nil {
		return Object{}, fmt.Errorf("upload failed: %w", err)
	}
	return Object{
		Bucket:      bucket,
		Name:        name,
		URL:         s.PublicURL(bucket, name),
		Size:        counted.n,
		ContentType: contentType,
	}, nil
}

// Delete removes an object.
func (s *RemoteStore) Delete(ctx context.Context, bucket, name string) error {
	if err := checkObject(bucket, name); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if err := s.do(req); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// PublicURL is the unauthenticated read URL of an object.
func (s *RemoteStore) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, url.PathEscape(name))
}

// Locate accepts URLs produced by PublicURL.
func (s *RemoteStore) Locate(publicURL string) (string, string, bool) {
	rest, ok := strings.CutPrefix(publicURL, s.baseURL+"/storage/v1/object/public/")
	if !ok {
		return "", "", false
	}
	bucket, escaped, found := strings.Cut(rest, "/")
	if !found {
		return "", "", false
	}
	name, err := url.PathUnescape(escaped)
	if err != nil {
		return "", "", false
	}
	return splitObject(bucket + "/" + name)
}

func (s *RemoteStore) do(req *http.Request) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

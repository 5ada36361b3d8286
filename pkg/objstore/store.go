// Package objstore rehosts third-party assets into durable object storage and
// serves as the single owner of the "is this URL already ours" check.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectAPI is the slice of *minio.Client the store needs. Tests substitute a
// fake; production always passes the real client.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

type Store struct {
	objects       objectAPI
	bucket        string
	publicBaseURL string
	http          *http.Client
}

type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// New connects to the object storage endpoint and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: create client: %w", err)
	}

	s := newWithAPI(client, opts.Bucket, opts.PublicBaseURL)

	exists, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("objstore: check bucket: %w", err)
	}
	if !exists {
		if err := s.objects.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("objstore: create bucket: %w", err)
		}
	}

	return s, nil
}

func newWithAPI(api objectAPI, bucket, publicBaseURL string) *Store {
	return &Store{
		objects:       api,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		http: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// IsHosted reports whether url already points into this store. Prefix match
// against the configured public base URL; config-driven rather than
// hard-coded, but still a provenance-by-URL signal.
func (s *Store) IsHosted(url string) bool {
	u := strings.TrimSpace(url)
	return u != "" && strings.HasPrefix(u, s.publicBaseURL+"/")
}

// PublicURL returns the canonical URL for an object key.
func (s *Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// UploadFromURL downloads sourceURL and rehosts it under folder/fileName,
// returning the canonical URL. If sourceURL is already hosted here it is
// returned unchanged without any network fetch. Any download or upload
// failure returns "" — callers keep the original URL as a degraded fallback,
// never treat this as a pipeline failure.
func (s *Store) UploadFromURL(ctx context.Context, sourceURL, fileName, folder string) string {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return ""
	}
	if s.IsHosted(sourceURL) {
		return sourceURL
	}

	data, contentType, err := s.fetch(ctx, sourceURL)
	if err != nil {
		slog.Warn("objstore: download failed, keeping original url", "url", sourceURL, "error", err)
		return ""
	}

	key := strings.Trim(folder, "/") + "/" + strings.TrimLeft(fileName, "/")
	canonical, err := s.Upload(ctx, bytes.NewReader(data), int64(len(data)), key, contentType)
	if err != nil {
		slog.Warn("objstore: upload failed, keeping original url", "key", key, "error", err)
		return ""
	}

	slog.Info("objstore: rehosted asset", "key", key, "size", humanize.Bytes(uint64(len(data))))
	return canonical
}

// Upload stores the reader contents under key and returns the canonical URL.
func (s *Store) Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.objects.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("objstore: put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Download fetches the full byte stream behind url. Works for both hosted and
// third-party origins.
func (s *Store) Download(ctx context.Context, url string) ([]byte, error) {
	data, _, err := s.fetch(ctx, url)
	return data, err
}

func (s *Store) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

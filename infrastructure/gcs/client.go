package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
)

// DefaultSignedURLTTL is how long private object links stay valid
const DefaultSignedURLTTL = time.Hour

// BucketService defines the Cloud Storage operations we use
// This allows mocking the storage API in tests
type BucketService interface {
	Write(ctx context.Context, object, contentType string, r io.Reader) (int64, error)
	MakePublic(ctx context.Context, object string) error
	SignedURL(object string, expires time.Time) (string, error)
}

// bucketHandle is the production implementation backed by a storage client
type bucketHandle struct {
	bucket *storage.BucketHandle
}

func (b *bucketHandle) Write(ctx context.Context, object, contentType string, r io.Reader) (int64, error) {
	w := b.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return n, err
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	return n, nil
}

func (b *bucketHandle) MakePublic(ctx context.Context, object string) error {
	return b.bucket.Object(object).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (b *bucketHandle) SignedURL(object string, expires time.Time) (string, error) {
	return b.bucket.SignedURL(object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	})
}

// Config holds the bucket settings
type Config struct {
	Bucket       string
	Prefix       string
	Public       bool
	SignedURLTTL time.Duration
}

// Client implements distribution.Uploader using Google Cloud Storage
type Client struct {
	cfg     Config
	service BucketService
	closer  io.Closer
	now     func() time.Time
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithBucketService sets a custom bucket service (for testing)
func WithBucketService(svc BucketService) ClientOption {
	return func(c *Client) {
		c.service = svc
	}
}

// WithClock sets the clock used for signed URL expiry (for testing)
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a GCS uploader. When no bucket service is given a
// storage client is created from apiOpts.
func NewClient(ctx context.Context, cfg Config, apiOpts []option.ClientOption, opts ...ClientOption) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, distribution.ErrNotConfigured
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = DefaultSignedURLTTL
	}

	c := &Client{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	if c.service == nil {
		sc, err := storage.NewClient(ctx, apiOpts...)
		if err != nil {
			return nil, fmt.Errorf("unable to create storage client: %w", err)
		}
		c.service = &bucketHandle{bucket: sc.Bucket(cfg.Bucket)}
		c.closer = sc
	}

	return c, nil
}

// Upload implements distribution.Uploader. The configured prefix is
// prepended to the object name.
func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	f, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	object := c.ObjectName(req.ObjectName)
	size, err := c.service.Write(ctx, object, req.MimeType, f)
	if err != nil {
		return nil, fmt.Errorf("failed to upload gs://%s/%s: %w", c.cfg.Bucket, object, err)
	}

	var link string
	if c.cfg.Public {
		if err := c.service.MakePublic(ctx, object); err != nil {
			return nil, fmt.Errorf("failed to make object public: %w", err)
		}
		link = PublicURL(c.cfg.Bucket, object)
	} else {
		link, err = c.service.SignedURL(object, c.now().Add(c.cfg.SignedURLTTL))
		if err != nil {
			return nil, fmt.Errorf("failed to sign URL: %w", err)
		}
	}

	return &distribution.UploadResult{
		ObjectName: object,
		URL:        link,
		Size:       size,
	}, nil
}

// ObjectName joins the configured prefix and a filename
func (c *Client) ObjectName(filename string) string {
	return c.cfg.Prefix + filename
}

// Destination implements distribution.Describer
func (c *Client) Destination() string {
	return c.cfg.Bucket
}

// Close releases the underlying storage client
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// PublicURL returns the anonymous download URL of an object
func PublicURL(bucket, object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(parts, "/"))
}

// Ensure Client implements the distribution ports
var (
	_ distribution.Uploader  = (*Client)(nil)
	_ distribution.Describer = (*Client)(nil)
)

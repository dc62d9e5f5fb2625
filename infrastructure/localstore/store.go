package localstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
)

// Store implements distribution.Uploader by copying into a directory
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating it if needed
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("local output directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Upload implements distribution.Uploader
func (s *Store) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	name := filepath.Base(req.ObjectName)
	dst := filepath.Join(s.dir, name)

	src, err := os.Open(req.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("failed to copy to %s: %w", dst, err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}
	return &distribution.UploadResult{
		ObjectName: name,
		URL:        u.String(),
		Size:       n,
	}, nil
}

// Destination implements distribution.Describer
func (s *Store) Destination() string {
	return s.dir
}

var (
	_ distribution.Uploader  = (*Store)(nil)
	_ distribution.Describer = (*Store)(nil)
)

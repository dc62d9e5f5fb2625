package distribution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
)

// UploadService publishes rendered videos to the configured backend
type UploadService struct {
	uploader distribution.Uploader
	logger   zerolog.Logger
}

// NewUploadService creates a new upload service. A nil uploader means
// storage is not configured.
func NewUploadService(uploader distribution.Uploader, logger zerolog.Logger) *UploadService {
	return &UploadService{
		uploader: uploader,
		logger:   logger,
	}
}

// Configured reports whether renders will be uploaded anywhere
func (s *UploadService) Configured() bool {
	return s.uploader != nil
}

// Destination names where uploads go, e.g. the GCS bucket. It is empty when
// storage is not configured.
func (s *UploadService) Destination() string {
	if d, ok := s.uploader.(distribution.Describer); ok {
		return d.Destination()
	}
	return ""
}

// UploadVideo uploads a rendered MP4. It returns ErrNotConfigured when there
// is no backend, which callers treat as a soft outcome.
func (s *UploadService) UploadVideo(ctx context.Context, videoPath string) (*distribution.UploadResult, error) {
	if s.uploader == nil {
		s.logger.Warn().Str("file", filepath.Base(videoPath)).Msg(distribution.NotConfiguredMarker)
		return nil, distribution.ErrNotConfigured
	}

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", videoPath)
	}

	fileName := filepath.Base(videoPath)
	req := distribution.UploadRequest{
		LocalPath:  videoPath,
		ObjectName: fileName,
		MimeType:   distribution.MimeTypeMP4,
	}

	result, err := s.uploader.Upload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}

	s.logger.Info().
		Str("object", result.ObjectName).
		Int64("bytes", result.Size).
		Msg("upload complete")
	return result, nil
}

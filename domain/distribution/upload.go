package distribution

import (
	"context"
	"errors"
)

// NotConfiguredMarker is what gets reported in place of a URL when no
// storage backend is configured
const NotConfiguredMarker = "GCS_NOT_CONFIGURED"

// ErrNotConfigured is returned when a render finishes but there is nowhere
// to upload it
var ErrNotConfigured = errors.New("storage not configured")

// UploadRequest contains the parameters needed to upload a rendered file
type UploadRequest struct {
	LocalPath  string // Full path to the local file
	ObjectName string // Target name including any prefix
	MimeType   string // MIME type of the file
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	ObjectName string // Name the file was stored under
	URL        string // Public or signed URL for the file
	Size       int64  // Size of the uploaded file in bytes
}

// Uploader stores rendered files somewhere the caller can reach them
// This is a port that can be implemented by different infrastructure adapters
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// Describer is implemented by uploaders that can name their destination,
// e.g. the bucket reported back to callers
type Describer interface {
	Destination() string
}

// MIME type constants for rendered media
const (
	MimeTypeMP4 = "video/mp4"
)

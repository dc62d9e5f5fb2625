package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
)

// DriveService defines the interface for Google Drive API operations
// This allows mocking the Google Drive API in tests
type DriveService interface {
	UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*drive.File, error)
	CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error
}

// GoogleDriveService is the production implementation using the Google Drive API
type GoogleDriveService struct {
	service *drive.Service
}

// UploadFile uploads a local file into a folder
func (s *GoogleDriveService) UploadFile(ctx context.Context, fileName, mimeType, folderID, localPath string) (*drive.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &drive.File{
		Name:     fileName,
		MimeType: mimeType,
		Parents:  []string{folderID},
	}
	return s.service.Files.Create(meta).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id, name, mimeType, size, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// CreatePermission adds a permission to a file
func (s *GoogleDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	_, err := s.service.Permissions.Create(fileID, permission).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

// Client implements distribution.Uploader using Google Drive
type Client struct {
	driveService DriveService
	folderID     string
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithDriveService sets a custom drive service (for testing)
func WithDriveService(svc DriveService) ClientOption {
	return func(c *Client) {
		c.driveService = svc
	}
}

// NewClient creates a new Google Drive uploader for a folder.
// If no drive service is provided, one is built from apiOpts.
func NewClient(ctx context.Context, folderID string, apiOpts []option.ClientOption, opts ...ClientOption) (*Client, error) {
	if folderID == "" {
		return nil, fmt.Errorf("drive folder ID is required")
	}

	c := &Client{folderID: folderID}
	for _, opt := range opts {
		opt(c)
	}

	if c.driveService == nil {
		srv, err := drive.NewService(ctx, apiOpts...)
		if err != nil {
			return nil, fmt.Errorf("unable to create drive service: %w", err)
		}
		c.driveService = &GoogleDriveService{service: srv}
	}

	return c, nil
}

// Upload implements distribution.Uploader. The file is shared with anyone
// holding the link and the web view link is returned.
func (c *Client) Upload(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	name := filepath.Base(req.ObjectName)
	file, err := c.driveService.UploadFile(ctx, name, req.MimeType, c.folderID, req.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if err := c.driveService.CreatePermission(ctx, file.Id, perm); err != nil {
		return nil, fmt.Errorf("failed to share file: %w", err)
	}

	link := file.WebViewLink
	if link == "" {
		link = fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id)
	}

	return &distribution.UploadResult{
		ObjectName: file.Name,
		URL:        link,
		Size:       file.Size,
	}, nil
}

// Destination implements distribution.Describer
func (c *Client) Destination() string {
	return "drive:" + c.folderID
}

// Ensure Client implements the distribution ports
var (
	_ distribution.Uploader  = (*Client)(nil)
	_ distribution.Describer = (*Client)(nil)
)

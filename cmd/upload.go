package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	appdist "github.com/ROJSUWAN/n8n-video-renderer/application/distribution"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"

	"github.com/spf13/cobra"
)

var (
	uploadVideoPath string
	uploadDir       string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a rendered MP4 to the configured storage",
	Long: `Upload an existing MP4 to the configured storage backend (GCS, Google
Drive or a local directory) and print its URL.

Use this to publish a file written with "render --output", or to retry an
upload after a storage outage. Without --video the newest MP4 in --dir is
used.

Examples:
  n8n-video-renderer upload --video ./PTT_a1b2c3.mp4
  n8n-video-renderer upload --dir ./out`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadVideoPath, "video", "", "Path to the MP4 to upload (defaults to the newest in --dir)")
	uploadCmd.Flags().StringVar(&uploadDir, "dir", ".", "Directory searched for the newest MP4")
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	videoPath := uploadVideoPath
	if videoPath == "" {
		videoPath, err = findLatestFile(uploadDir, ".mp4")
		if err != nil {
			return fmt.Errorf("no video file specified and could not find latest: %w", err)
		}
	}

	ctx := cmd.Context()
	uploader, closer, err := newUploader(ctx, cfg, credentialsFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create %s uploader: %w", cfg.Storage.Backend, err)
	}
	if closer != nil {
		defer closer()
	}

	return RunUploadWithDependencies(ctx, appdist.NewUploadService(uploader, logger), videoPath, DefaultOutput)
}

// findLatestFile finds the most recently modified file with given extension in directory
func findLatestFile(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var latestPath string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestPath = filepath.Join(dir, entry.Name())
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("no %s files found in %s", ext, dir)
	}

	return latestPath, nil
}

// RunUploadWithDependencies runs the upload command with injected dependencies (for testing)
func RunUploadWithDependencies(ctx context.Context, service *appdist.UploadService, videoPath string, out OutputWriter) error {
	if !service.Configured() {
		return fmt.Errorf("%w: set storage.backend or GCS_BUCKET", distribution.ErrNotConfigured)
	}

	fmt.Fprintf(out, "Uploading video: %s...\n", filepath.Base(videoPath))
	result, err := service.UploadVideo(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("video upload failed: %w", err)
	}

	fmt.Fprintf(out, "Video uploaded successfully!\n")
	if dest := service.Destination(); dest != "" {
		fmt.Fprintf(out, "  Destination: %s\n", dest)
	}
	fmt.Fprintf(out, "  Object: %s\n", result.ObjectName)
	fmt.Fprintf(out, "  Size: %.2f MB\n", float64(result.Size)/1024/1024)
	fmt.Fprintf(out, "  URL: %s\n", result.URL)
	return nil
}

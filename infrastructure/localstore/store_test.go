package localstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
)

func TestStore_Upload(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	s, err := New(outDir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := s.Upload(context.Background(), distribution.UploadRequest{
		LocalPath:  src,
		ObjectName: "renders/NVDA_abc123.mp4",
		MimeType:   distribution.MimeTypeMP4,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "NVDA_abc123.mp4"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(got) != "video" {
		t.Errorf("content = %q", got)
	}
	if !strings.HasPrefix(result.URL, "file://") || !strings.HasSuffix(result.URL, "/out/NVDA_abc123.mp4") {
		t.Errorf("URL = %q", result.URL)
	}
	if result.Size != 5 {
		t.Errorf("Size = %d", result.Size)
	}
	if s.Destination() != outDir {
		t.Errorf("Destination() = %q, want %q", s.Destination(), outDir)
	}
}

func TestStore_Errors(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}

	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upload(context.Background(), distribution.UploadRequest{LocalPath: "/no/such/file.mp4", ObjectName: "x.mp4"}); err == nil {
		t.Error("expected error for missing source")
	}
}

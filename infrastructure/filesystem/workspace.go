package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const workspacePrefix = "render_"

// Workspace is the scratch directory for one render:
//
//	render_XXXX/
//	  assets/<n>.png, assets/<n>.mp3
//	  scenes/<n>.mp4
//	  concat_list.txt, <output>.mp4
type Workspace struct {
	Root string
}

// NewWorkspace creates a fresh render_* directory under baseDir
// (the OS temp directory when baseDir is empty)
func NewWorkspace(baseDir string) (*Workspace, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	root, err := os.MkdirTemp(baseDir, workspacePrefix)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws := &Workspace{Root: root}
	for _, dir := range []string{ws.AssetsDir(), ws.ScenesDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ws.Remove()
			return nil, fmt.Errorf("create workspace: %w", err)
		}
	}
	return ws, nil
}

// AssetsDir holds decoded images and synthesized audio
func (w *Workspace) AssetsDir() string { return filepath.Join(w.Root, "assets") }

// ScenesDir holds one encoded clip per scene
func (w *Workspace) ScenesDir() string { return filepath.Join(w.Root, "scenes") }

// ImagePath returns assets/<n>.png
func (w *Workspace) ImagePath(scene int) string {
	return filepath.Join(w.AssetsDir(), strconv.Itoa(scene)+".png")
}

// AudioPath returns assets/<n>.mp3
func (w *Workspace) AudioPath(scene int) string {
	return filepath.Join(w.AssetsDir(), strconv.Itoa(scene)+".mp3")
}

// ScenePath returns scenes/<n>.mp4
func (w *Workspace) ScenePath(scene int) string {
	return filepath.Join(w.ScenesDir(), strconv.Itoa(scene)+".mp4")
}

// OutputPath returns the final video path inside the workspace
func (w *Workspace) OutputPath(filename string) string {
	return filepath.Join(w.Root, filename)
}

// WriteFile writes data, creating parent directories as needed
func (w *Workspace) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Remove deletes the workspace and everything in it. Errors are ignored.
func (w *Workspace) Remove() {
	if w == nil || w.Root == "" {
		return
	}
	_ = os.RemoveAll(w.Root)
}

// SweepStale removes render_* directories under baseDir that were last
// modified before olderThan ago. Workspaces are normally removed when a
// render finishes; this clears the ones a crash left behind. It returns the
// removed paths.
func SweepStale(baseDir string, olderThan time.Duration) ([]string, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read work dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(baseDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

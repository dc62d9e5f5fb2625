package video

import "context"

// SceneInput names the files that make up one scene clip
type SceneInput struct {
	ImagePath string
	AudioPath string
}

// SceneBuilder turns a still image and a narration track into a clip
// This is a port that can be implemented by different infrastructure adapters
type SceneBuilder interface {
	// BuildScene encodes the scene and saves it to outputPath
	BuildScene(ctx context.Context, in SceneInput, outputPath string) error
}

// Concatenator joins clips that share an encoding profile
type Concatenator interface {
	// Concat joins clips in order and saves the result to outputPath
	Concat(ctx context.Context, clips []string, outputPath string) error
}

// FileChecker defines the interface for checking file existence
// This is used to validate that intermediate files were produced
type FileChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool
}

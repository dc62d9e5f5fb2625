package render

import "errors"

var (
	// ErrEmptyData is returned when a request carries no scenes
	ErrEmptyData = errors.New("data is empty")

	// ErrInvalidScene is returned when a scene is missing fields or out of range
	ErrInvalidScene = errors.New("invalid scene")

	// ErrDuplicateScene is returned when two scenes share a scene number
	ErrDuplicateScene = errors.New("duplicate scene number")

	// ErrInvalidImage is returned when a scene image cannot be decoded
	ErrInvalidImage = errors.New("invalid image data")

	// ErrJobNotFound is returned when a job ID is unknown or expired
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when creating a job whose ID is already stored
	ErrJobExists = errors.New("job already exists")
)

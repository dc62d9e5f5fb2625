package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/logging"
)

// maxStderr bounds how much tool output is carried inside an error
const maxStderr = 4096

// Runner defines the interface for running external commands
// This allows mocking exec.Command in tests
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Error is returned when a command exits unsuccessfully
type Error struct {
	Name   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	tool := filepath.Base(e.Name)
	if e.Stderr == "" {
		return fmt.Sprintf("%s error: %v", tool, e.Err)
	}
	return fmt.Sprintf("%s error: %s", tool, e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// ExecRunner is the production implementation using os/exec.
// Stderr is captured for error reporting and replayed to the debug log.
type ExecRunner struct {
	Logger *zerolog.Logger
}

// NewExecRunner creates a runner that logs through the global logger
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) logger() zerolog.Logger {
	if r.Logger != nil {
		return *r.Logger
	}
	return log.Logger
}

// Run executes a command and returns any error
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	l := r.logger()
	l.Debug().Str("cmd", name).Strs("args", args).Msg("exec")

	err := cmd.Run()
	logging.NewLineWriter(l, map[string]string{"tool": filepath.Base(name)}, zerolog.DebugLevel).
		Pipe(bytes.NewReader(stderr.Bytes()))
	if err != nil {
		return &Error{Name: name, Stderr: tail(stderr.String(), maxStderr), Err: err}
	}
	return nil
}

// Output executes a command and returns its stdout
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, &Error{Name: name, Stderr: tail(stderr.String(), maxStderr), Err: err}
	}
	return out, nil
}

// tail keeps the last n bytes of s, where tools put the actual failure
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// IsNotFound reports whether err means the executable does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

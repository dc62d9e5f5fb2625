package command

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "stderr is preferred",
			err:  &Error{Name: "/usr/bin/ffmpeg", Stderr: "Invalid data found", Err: errors.New("exit status 1")},
			want: "ffmpeg error: Invalid data found",
		},
		{
			name: "falls back to exit error",
			err:  &Error{Name: "edge-tts", Err: errors.New("exit status 2")},
			want: "edge-tts error: exit status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &Error{Name: "ffmpeg", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected Error to unwrap to the exit error")
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short  ", 10); got != "short" {
		t.Errorf("tail() = %q, want %q", got, "short")
	}

	long := strings.Repeat("a", 20) + "END"
	got := tail(long, 5)
	if got != "...aaEND" {
		t.Errorf("tail() = %q, want %q", got, "...aaEND")
	}
}

func TestIsNotFound(t *testing.T) {
	wrapped := &Error{Name: "nope", Err: &exec.Error{Name: "nope", Err: exec.ErrNotFound}}
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to see through Error")
	}
	if IsNotFound(errors.New("exit status 1")) {
		t.Error("plain errors are not not-found errors")
	}
}

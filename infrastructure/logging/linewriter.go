package logging

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"
)

// LineWriter turns stream output into per-line zerolog events at a given level
type LineWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewLineWriter derives a line logger from base with extra string fields
func NewLineWriter(base zerolog.Logger, fields map[string]string, level zerolog.Level) *LineWriter {
	w := base.With()
	for k, v := range fields {
		w = w.Str(k, v)
	}
	return &LineWriter{logger: w.Logger(), level: level}
}

// Pipe logs every line read from r until EOF
func (lw *LineWriter) Pipe(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lw.logger.WithLevel(lw.level).Msg(line)
	}
}

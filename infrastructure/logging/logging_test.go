package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_FILE", "")

	c := FromEnv("api")

	if c.Service != "api" || c.Level != "info" || c.Format != "json" {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.FilePath != "" || c.FileMaxSizeMB != 50 || !c.FileCompress {
		t.Errorf("unexpected file defaults: %+v", c)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("LOG_FILE_COMPRESS", "no")
	t.Setenv("LOG_SAMPLE_EVERY", "10")

	c := FromEnv("worker")

	if c.Level != "debug" || c.Format != "console" {
		t.Errorf("level/format not overridden: %+v", c)
	}
	if c.FileCompress {
		t.Error("expected compress to be disabled")
	}
	if c.SampleEveryN != 10 {
		t.Errorf("SampleEveryN = %d, want 10", c.SampleEveryN)
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(Config{Service: "api", Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", out, err)
	}
	if entry["svc"] != "api" || entry["message"] != "shown" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if log.Logger.GetLevel() != zerolog.WarnLevel {
		t.Error("Setup should install the global logger")
	}
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(Config{Service: "worker", Level: "info"}, &buf)

	ctx := WithJob(context.Background(), "01JOB", "AAPL")
	l := FromCtx(ctx)
	l.Info().Msg("rendering")

	out := buf.String()
	if !strings.Contains(out, `"job_id":"01JOB"`) || !strings.Contains(out, `"symbol":"AAPL"`) {
		t.Errorf("context fields missing: %s", out)
	}
}

func TestLineWriter_Pipe(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	lw := NewLineWriter(base, map[string]string{"tool": "ffmpeg"}, zerolog.DebugLevel)
	lw.Pipe(strings.NewReader("frame=1\n\nframe=2\n"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines (blank skipped), got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"tool":"ffmpeg"`) || !strings.Contains(line, `"level":"debug"`) {
			t.Errorf("unexpected line: %s", line)
		}
	}
}

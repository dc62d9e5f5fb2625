package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable ApplyEnv reads so the host environment
// cannot leak into tests
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HOST", "PORT", "TRUSTED_PROXIES", "BODY_LIMIT_MB",
		"VIDEO_WIDTH", "VIDEO_HEIGHT", "VIDEO_FPS", "VIDEO_PRESET", "VIDEO_CRF", "AUDIO_BITRATE", "FFMPEG_PATH",
		"TTS_PROVIDER", "TTS_VOICE", "TTS_LANGUAGE", "EDGE_TTS_PATH",
		"STORAGE_BACKEND", "GCS_BUCKET", "GCS_PREFIX", "GCS_PUBLIC", "GCS_SIGNED_URL_TTL",
		"DRIVE_FOLDER_ID", "LOCAL_OUTPUT_DIR",
		"GCP_SA_JSON", "GOOGLE_CREDENTIALS_FILE", "GOOGLE_TOKEN_FILE",
		"QUEUE_BACKEND", "QUEUE_CONCURRENCY", "QUEUE_CAPACITY", "QUEUE_MAX_RETRY", "QUEUE_TIMEOUT",
		"JOB_STORE", "JOB_TTL", "WORK_DIR",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"WEBHOOK_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "EMAIL_FROM", "EMAIL_TO",
	} {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("listen = %s", cfg.Addr())
	}
	if len(cfg.Server.TrustedProxies) != 1 || cfg.Server.TrustedProxies[0] != "*" {
		t.Errorf("trusted proxies = %v", cfg.Server.TrustedProxies)
	}
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 || cfg.Video.FPS != 30 {
		t.Errorf("video = %+v", cfg.Video)
	}
	if cfg.Speech.Voice != "th-TH-PremwadeeNeural" || cfg.Speech.Provider != SpeechEdge {
		t.Errorf("speech = %+v", cfg.Speech)
	}
	if cfg.Storage.Backend != StorageNone {
		t.Errorf("storage backend = %q, want none without a bucket", cfg.Storage.Backend)
	}
	if cfg.Storage.GCS.Prefix != "renders/" {
		t.Errorf("prefix = %q", cfg.Storage.GCS.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GCS_BUCKET", "renders-bucket")
	t.Setenv("GCS_PREFIX", "")
	t.Setenv("GCS_PUBLIC", "yes")
	t.Setenv("GCS_SIGNED_URL_TTL", "900")
	t.Setenv("VIDEO_FPS", "25")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")
	t.Setenv("EMAIL_TO", "Ops Team <ops@example.com>, B@example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageGCS || cfg.Storage.GCS.Bucket != "renders-bucket" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.GCS.Prefix != "" || !cfg.Storage.GCS.Public {
		t.Errorf("gcs = %+v", cfg.Storage.GCS)
	}
	if cfg.Storage.GCS.SignedURLTTL != 15*time.Minute {
		t.Errorf("ttl = %v", cfg.Storage.GCS.SignedURLTTL)
	}
	if cfg.Video.FPS != 25 {
		t.Errorf("fps = %d", cfg.Video.FPS)
	}
	if strings.Join(cfg.Server.TrustedProxies, "|") != "10.0.0.1|10.0.0.2" {
		t.Errorf("proxies = %v", cfg.Server.TrustedProxies)
	}
	if cfg.Notify.Telegram.ChatID != -1001234 {
		t.Errorf("chat id = %d", cfg.Notify.Telegram.ChatID)
	}
	if !cfg.Notify.Email.Enabled || len(cfg.Notify.Email.Recipients) != 2 {
		t.Errorf("email = %+v", cfg.Notify.Email)
	}
	if got := cfg.Notify.Email.Recipients["ops@example.com"]; got.Name != "Ops Team" || got.Address != "ops@example.com" {
		t.Errorf("named recipient = %+v", got)
	}
	if got := cfg.Notify.Email.Recipients["b@example.com"]; got.Address != "B@example.com" {
		t.Errorf("bare recipient = %+v", got)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("JOB_TTL", "forever")
	t.Setenv("EMAIL_TO", "ops@example.com, not an address")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error")
	}
	for _, key := range []string{"PORT", "JOB_TTL", "EMAIL_TO"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadFile_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 3000
video:
  preset: fast
storage:
  backend: local
  local:
    dir: /srv/videos
jobs:
  ttl: 2h
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Video.Preset != "fast" || cfg.Video.CRF != 23 {
		t.Errorf("cfg = %+v / %+v", cfg.Server, cfg.Video)
	}
	if cfg.Storage.Backend != StorageLocal || cfg.Storage.Local.Dir != "/srv/videos" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Jobs.TTL != 2*time.Hour {
		t.Errorf("ttl = %v", cfg.Jobs.TTL)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("LoadFile() error = %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Storage.Backend = StorageGCS
	cfg.Storage.GCS.Bucket = "b"
	cfg.Google.ServiceAccountJSON = `{"secret":true}`

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Error("service account JSON must not be written to disk")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Storage.GCS.Bucket != "b" || loaded.Storage.GCS.SignedURLTTL != time.Hour {
		t.Errorf("loaded = %+v", loaded.Storage.GCS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"odd width", func(c *Config) { c.Video.Width = 1081 }, "even"},
		{"zero fps", func(c *Config) { c.Video.FPS = 0 }, "video.fps"},
		{"bad crf", func(c *Config) { c.Video.CRF = 60 }, "video.crf"},
		{"bad provider", func(c *Config) { c.Speech.Provider = "polly" }, "speech.provider"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = StorageGCS }, "storage.gcs.bucket"},
		{"drive without folder", func(c *Config) { c.Storage.Backend = StorageDrive }, "folder_id"},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"redis without addr", func(c *Config) {
			c.Queue.Backend, c.Jobs.Store, c.Redis.Addr = BackendRedis, BackendRedis, ""
		}, "redis.addr"},
		{"redis queue with memory store", func(c *Config) { c.Queue.Backend = BackendRedis }, "jobs.store redis"},
		{"telegram without chat", func(c *Config) { c.Notify.Telegram.BotToken = "t" }, "chat_id"},
		{"email without sender", func(c *Config) {
			c.Notify.Email.Enabled = true
			c.Notify.Email.Recipients = map[string]RecipientConfig{"a": {Address: "a@example.com"}}
		}, "from_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ResolveStorage()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Notify.Telegram.BotToken = "123:abc"
	cfg.Google.ServiceAccountJSON = "{}"

	r := cfg.Redacted()
	if r.Notify.Telegram.BotToken == "123:abc" || r.Google.ServiceAccountJSON == "{}" {
		t.Errorf("secrets not masked: %+v", r.Notify.Telegram)
	}
	if cfg.Notify.Telegram.BotToken != "123:abc" {
		t.Error("Redacted() must not modify the original")
	}
}

func TestConfigManager_Recipients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	m := NewConfigManager(cfg, path)

	if err := m.AddRecipient("Ops", "Ops Team", "ops@example.com"); err != nil {
		t.Fatalf("AddRecipient() error = %v", err)
	}
	if err := m.AddRecipient("ops", "Dup", "dup@example.com"); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("duplicate AddRecipient() error = %v", err)
	}
	if err := m.AddRecipient("bad", "Bad", "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("invalid AddRecipient() error = %v", err)
	}

	r, err := m.GetRecipient("OPS")
	if err != nil || r.Address != "ops@example.com" {
		t.Errorf("GetRecipient() = %+v, %v", r, err)
	}

	if err := m.UpdateRecipient("ops", "", "team@example.com"); err != nil {
		t.Fatalf("UpdateRecipient() error = %v", err)
	}
	saved, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := saved.Notify.Email.Recipients["ops"]; got.Address != "team@example.com" || got.Name != "Ops Team" {
		t.Errorf("saved recipient = %+v", got)
	}

	if list := m.ListRecipients(); len(list) != 1 || list[0].Key != "ops" {
		t.Errorf("ListRecipients() = %+v", list)
	}

	if err := m.RemoveRecipient("ops"); err != nil {
		t.Fatalf("RemoveRecipient() error = %v", err)
	}
	if err := m.RemoveRecipient("ops"); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("second RemoveRecipient() error = %v", err)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := map[string]bool{
		"a@example.com":        true,
		"first.last@sub.io":    true,
		"":                     false,
		"no-at-sign":           false,
		"a@nodot":              false,
		"a@.example.com":       false,
		"Name <a@example.com>": false,
	}
	for in, want := range tests {
		if got := isValidEmail(in); got != want {
			t.Errorf("isValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

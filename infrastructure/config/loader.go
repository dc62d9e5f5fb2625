package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/notify"
)

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error: containers are
// usually configured through the environment alone.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.ResolveStorage()
	return cfg, nil
}

// LoadFile reads the YAML file over the defaults without consulting the
// environment
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// envReader collects parse errors so every bad variable is reported at once
type envReader struct {
	errs []error
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) int(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: must be an integer, got %q", key, v))
		return
	}
	*dst = n
}

func (r *envReader) int64(key string, dst *int64) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: must be an integer, got %q", key, v))
		return
	}
	*dst = n
}

func (r *envReader) bool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		*dst = true
	default:
		*dst = false
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		// Bare numbers are seconds
		n, nerr := strconv.Atoi(strings.TrimSpace(v))
		if nerr != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		d = time.Duration(n) * time.Second
	}
	*dst = d
}

func (r *envReader) list(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	*dst = splitList(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyEnv overrides cfg with environment variables
func ApplyEnv(cfg *Config) error {
	r := &envReader{}

	r.str("HOST", &cfg.Server.Host)
	r.int("PORT", &cfg.Server.Port)
	r.list("TRUSTED_PROXIES", &cfg.Server.TrustedProxies)
	r.int("BODY_LIMIT_MB", &cfg.Server.BodyLimitMB)

	r.int("VIDEO_WIDTH", &cfg.Video.Width)
	r.int("VIDEO_HEIGHT", &cfg.Video.Height)
	r.int("VIDEO_FPS", &cfg.Video.FPS)
	r.str("VIDEO_PRESET", &cfg.Video.Preset)
	r.int("VIDEO_CRF", &cfg.Video.CRF)
	r.str("AUDIO_BITRATE", &cfg.Video.AudioBitrate)
	r.str("FFMPEG_PATH", &cfg.Video.FFmpegPath)

	r.str("TTS_PROVIDER", &cfg.Speech.Provider)
	r.str("TTS_VOICE", &cfg.Speech.Voice)
	r.str("TTS_LANGUAGE", &cfg.Speech.Language)
	r.str("EDGE_TTS_PATH", &cfg.Speech.EdgePath)

	r.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	r.str("GCS_BUCKET", &cfg.Storage.GCS.Bucket)
	if v, ok := os.LookupEnv("GCS_PREFIX"); ok {
		// An empty prefix is meaningful: objects go to the bucket root
		cfg.Storage.GCS.Prefix = strings.TrimSpace(v)
	}
	r.bool("GCS_PUBLIC", &cfg.Storage.GCS.Public)
	r.duration("GCS_SIGNED_URL_TTL", &cfg.Storage.GCS.SignedURLTTL)
	r.str("DRIVE_FOLDER_ID", &cfg.Storage.Drive.FolderID)
	r.str("LOCAL_OUTPUT_DIR", &cfg.Storage.Local.Dir)

	r.str("GCP_SA_JSON", &cfg.Google.ServiceAccountJSON)
	r.str("GOOGLE_CREDENTIALS_FILE", &cfg.Google.CredentialsFile)
	r.str("GOOGLE_TOKEN_FILE", &cfg.Google.TokenFile)

	r.str("QUEUE_BACKEND", &cfg.Queue.Backend)
	r.int("QUEUE_CONCURRENCY", &cfg.Queue.Concurrency)
	r.int("QUEUE_CAPACITY", &cfg.Queue.Capacity)
	r.int("QUEUE_MAX_RETRY", &cfg.Queue.MaxRetry)
	r.duration("QUEUE_TIMEOUT", &cfg.Queue.Timeout)

	r.str("JOB_STORE", &cfg.Jobs.Store)
	r.duration("JOB_TTL", &cfg.Jobs.TTL)
	r.str("WORK_DIR", &cfg.Jobs.WorkDir)

	r.str("REDIS_ADDR", &cfg.Redis.Addr)
	r.str("REDIS_PASSWORD", &cfg.Redis.Password)
	r.int("REDIS_DB", &cfg.Redis.DB)

	r.str("WEBHOOK_URL", &cfg.Notify.WebhookURL)
	r.str("TELEGRAM_BOT_TOKEN", &cfg.Notify.Telegram.BotToken)
	r.int64("TELEGRAM_CHAT_ID", &cfg.Notify.Telegram.ChatID)
	r.str("EMAIL_FROM", &cfg.Notify.Email.FromAddress)

	var to []string
	r.list("EMAIL_TO", &to)
	if len(to) > 0 {
		recipients := notify.ParseRecipients(to)
		if len(recipients) != len(to) {
			r.errs = append(r.errs, fmt.Errorf("EMAIL_TO: invalid address in %q", strings.Join(to, ",")))
		}
		cfg.Notify.Email.Enabled = true
		cfg.Notify.Email.Recipients = make(map[string]RecipientConfig, len(recipients))
		for _, rc := range recipients {
			cfg.Notify.Email.Recipients[strings.ToLower(rc.Address)] = RecipientConfig{Name: rc.Name, Address: rc.Address}
		}
	}

	return errors.Join(r.errs...)
}

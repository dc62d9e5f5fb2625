package config

import (
	"errors"
	"fmt"
)

// Validate checks that the configuration can run. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.BodyLimitMB < 1 {
		add("server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}

	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		add("video size must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	} else if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		add("video size must be even for yuv420p, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		add("video.fps must be positive, got %d", c.Video.FPS)
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		add("video.crf must be 0-51, got %d", c.Video.CRF)
	}

	switch c.Speech.Provider {
	case SpeechEdge, SpeechGoogle:
	default:
		add("speech.provider must be %q or %q, got %q", SpeechEdge, SpeechGoogle, c.Speech.Provider)
	}

	switch c.Storage.Backend {
	case StorageGCS:
		if c.Storage.GCS.Bucket == "" {
			add("storage.gcs.bucket is required for the gcs backend")
		}
	case StorageDrive:
		if c.Storage.Drive.FolderID == "" {
			add("storage.drive.folder_id is required for the drive backend")
		}
	case StorageLocal:
		if c.Storage.Local.Dir == "" {
			add("storage.local.dir is required for the local backend")
		}
	case StorageNone, "":
	default:
		add("storage.backend must be gcs, drive, local or none, got %q", c.Storage.Backend)
	}

	backends := []struct{ name, value string }{
		{"queue.backend", c.Queue.Backend},
		{"jobs.store", c.Jobs.Store},
	}
	for _, b := range backends {
		switch b.value {
		case BackendMemory:
		case BackendRedis:
			if c.Redis.Addr == "" {
				add("redis.addr is required when %s is redis", b.name)
			}
		default:
			add("%s must be memory or redis, got %q", b.name, b.value)
		}
	}
	if c.Queue.Backend == BackendRedis && c.Jobs.Store != BackendRedis {
		add("queue.backend redis needs jobs.store redis so workers can load jobs")
	}
	if c.Queue.Concurrency < 1 {
		add("queue.concurrency must be positive, got %d", c.Queue.Concurrency)
	}
	if c.Queue.MaxRetry < 0 {
		add("queue.max_retry must not be negative, got %d", c.Queue.MaxRetry)
	}

	if c.Notify.Telegram.BotToken != "" && c.Notify.Telegram.ChatID == 0 {
		add("notify.telegram.chat_id is required when a bot token is set")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.FromAddress == "" {
			add("notify.email.from_address is required when email is enabled")
		}
		if len(c.Notify.Email.Recipients) == 0 {
			add("notify.email.recipients is empty")
		}
	}

	return errors.Join(errs...)
}

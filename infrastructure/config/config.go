package config

import (
	"time"
)

// DefaultPath is where the config file is looked for when --config is not set
const DefaultPath = "config/config.yaml"

// Storage backends
const (
	StorageGCS   = "gcs"
	StorageDrive = "drive"
	StorageLocal = "local"
	StorageNone  = "none"
)

// Speech providers
const (
	SpeechEdge   = "edge"
	SpeechGoogle = "google"
)

// Queue and job store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Video   VideoConfig   `yaml:"video"`
	Speech  SpeechConfig  `yaml:"speech"`
	Storage StorageConfig `yaml:"storage"`
	Google  GoogleConfig  `yaml:"google"`
	Queue   QueueConfig   `yaml:"queue"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Redis   RedisConfig   `yaml:"redis"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	BodyLimitMB     int           `yaml:"body_limit_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// VideoConfig contains the encoding profile
type VideoConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	FPS          int    `yaml:"fps"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	AudioBitrate string `yaml:"audio_bitrate"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
}

// SpeechConfig selects the text-to-speech backend
type SpeechConfig struct {
	Provider string `yaml:"provider"`
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`
	EdgePath string `yaml:"edge_path"`
}

// StorageConfig selects where rendered videos go
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	GCS     GCSConfig   `yaml:"gcs"`
	Drive   DriveConfig `yaml:"drive"`
	Local   LocalConfig `yaml:"local"`
}

// GCSConfig contains Cloud Storage settings
type GCSConfig struct {
	Bucket       string        `yaml:"bucket"`
	Prefix       string        `yaml:"prefix"`
	Public       bool          `yaml:"public"`
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
}

// DriveConfig contains Google Drive settings
type DriveConfig struct {
	FolderID string `yaml:"folder_id"`
}

// LocalConfig contains local directory settings
type LocalConfig struct {
	Dir string `yaml:"dir"`
}

// GoogleConfig contains Google API credentials
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`

	// ServiceAccountJSON comes from GCP_SA_JSON only and is never saved
	ServiceAccountJSON string `yaml:"-"`
}

// QueueConfig contains background worker settings
type QueueConfig struct {
	Backend     string        `yaml:"backend"`
	Concurrency int           `yaml:"concurrency"`
	Capacity    int           `yaml:"capacity"`
	MaxRetry    int           `yaml:"max_retry"`
	Timeout     time.Duration `yaml:"timeout"`
}

// JobsConfig contains job tracking settings
type JobsConfig struct {
	Store   string        `yaml:"store"`
	TTL     time.Duration `yaml:"ttl"`
	WorkDir string        `yaml:"work_dir"`
}

// RedisConfig is shared by the redis queue and job store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NotifyConfig contains completion notification settings
type NotifyConfig struct {
	WebhookURL string         `yaml:"webhook_url"`
	Telegram   TelegramConfig `yaml:"telegram"`
	Email      EmailConfig    `yaml:"email"`
}

// TelegramConfig contains Telegram bot settings
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// EmailConfig contains email notification settings
type EmailConfig struct {
	Enabled     bool                       `yaml:"enabled"`
	FromName    string                     `yaml:"from_name"`
	FromAddress string                     `yaml:"from_address"`
	Recipients  map[string]RecipientConfig `yaml:"recipients"`
}

// RecipientConfig represents an email recipient
type RecipientConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			TrustedProxies:  []string{"*"},
			BodyLimitMB:     64,
			ShutdownTimeout: 30 * time.Second,
		},
		Video: VideoConfig{
			Width:        1080,
			Height:       1920,
			FPS:          30,
			Preset:       "veryfast",
			CRF:          23,
			AudioBitrate: "128k",
			FFmpegPath:   "ffmpeg",
		},
		Speech: SpeechConfig{
			Provider: SpeechEdge,
			Voice:    "th-TH-PremwadeeNeural",
			EdgePath: "edge-tts",
		},
		Storage: StorageConfig{
			GCS: GCSConfig{
				Prefix:       "renders/",
				SignedURLTTL: time.Hour,
			},
		},
		Queue: QueueConfig{
			Backend:     BackendMemory,
			Concurrency: 2,
			Capacity:    100,
			MaxRetry:    0,
			Timeout:     30 * time.Minute,
		},
		Jobs: JobsConfig{
			Store: BackendMemory,
			TTL:   24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// ResolveStorage fills in the storage backend when it was left empty:
// gcs when a bucket is configured, otherwise none
func (c *Config) ResolveStorage() {
	if c.Storage.Backend != "" {
		return
	}
	if c.Storage.GCS.Bucket != "" {
		c.Storage.Backend = StorageGCS
	} else {
		c.Storage.Backend = StorageNone
	}
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return joinHostPort(c.Server.Host, c.Server.Port)
}

// Redacted returns a copy safe to print, with secrets masked
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Google.ServiceAccountJSON = mask(cp.Google.ServiceAccountJSON)
	cp.Notify.Telegram.BotToken = mask(cp.Notify.Telegram.BotToken)
	cp.Redis.Password = mask(cp.Redis.Password)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

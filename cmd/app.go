package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	appdist "github.com/ROJSUWAN/n8n-video-renderer/application/distribution"
	appnotif "github.com/ROJSUWAN/n8n-video-renderer/application/notification"
	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/distribution"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/notification"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/speech"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/video"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/drive"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/ffmpeg"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/filesystem"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/gcs"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/gmail"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/google"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/httpapi"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/jobstore"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/localstore"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/notify"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/tts"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	drivev3 "google.golang.org/api/drive/v3"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/texttospeech/v1"
)

const (
	preflightTimeout = 10 * time.Second
	webhookTimeout   = 15 * time.Second
)

// storePinger is implemented by both job stores
type storePinger interface {
	render.JobStore
	Ping(ctx context.Context) error
}

// verifier is implemented by adapters that shell out to an external tool
type verifier interface {
	VerifyInstalled(ctx context.Context) error
}

// components holds everything serve, worker and render share
type components struct {
	cfg      *config.Config
	logger   zerolog.Logger
	profile  video.Profile
	builder  *ffmpeg.SceneBuilder
	synth    speech.Synthesizer
	uploads  *appdist.UploadService
	store    storePinger
	notifier *appnotif.Service
	service  *apprender.Service
	redis    *redis.Client
	closers  []func() error
}

// buildComponents wires adapters from configuration
func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	c := &components{cfg: cfg, logger: logger}
	c.profile = video.Profile{
		Width:        cfg.Video.Width,
		Height:       cfg.Video.Height,
		FPS:          cfg.Video.FPS,
		Preset:       cfg.Video.Preset,
		CRF:          cfg.Video.CRF,
		AudioBitrate: cfg.Video.AudioBitrate,
	}
	if err := c.profile.Validate(); err != nil {
		return nil, err
	}
	c.builder = ffmpeg.NewSceneBuilder(c.profile, ffmpeg.WithFFmpegPath(cfg.Video.FFmpegPath))
	concat := ffmpeg.NewConcatenator(ffmpeg.WithFFmpegPath(cfg.Video.FFmpegPath))

	creds := credentialsFrom(cfg)

	synth, err := newSynthesizer(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	c.synth = synth

	uploader, closer, err := newUploader(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	c.uploads = appdist.NewUploadService(uploader, logger)

	if cfg.Jobs.Store == config.BackendRedis || cfg.Queue.Backend == config.BackendRedis {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, c.redis.Close)
	}
	if cfg.Jobs.Store == config.BackendRedis {
		c.store = jobstore.NewRedis(c.redis, cfg.Jobs.TTL)
	} else {
		c.store = jobstore.NewMemory(cfg.Jobs.TTL)
	}

	notifiers, err := newNotifiers(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	c.notifier = appnotif.NewService(logger, notifiers...)

	c.service = apprender.NewService(
		c.synth,
		c.builder,
		concat,
		filesystem.NewChecker(),
		c.uploads,
		c.store,
		c.notifier,
		apprender.Config{Voice: cfg.Speech.Voice, WorkDir: cfg.Jobs.WorkDir},
	)

	logger.Info().
		Str("tts", cfg.Speech.Provider).
		Str("storage", cfg.Storage.Backend).
		Str("destination", c.uploads.Destination()).
		Str("queue", cfg.Queue.Backend).
		Str("jobs", cfg.Jobs.Store).
		Int("notifiers", c.notifier.Len()).
		Msg("components ready")

	return c, nil
}

func credentialsFrom(cfg *config.Config) google.Credentials {
	return google.Credentials{
		ServiceAccountJSON: cfg.Google.ServiceAccountJSON,
		CredentialsFile:    cfg.Google.CredentialsFile,
		TokenFile:          cfg.Google.TokenFile,
	}
}

func newSynthesizer(ctx context.Context, cfg *config.Config, creds google.Credentials) (speech.Synthesizer, error) {
	switch cfg.Speech.Provider {
	case config.SpeechGoogle:
		opts, err := google.ClientOptions(ctx, creds, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google tts credentials: %w", err)
		}
		return tts.NewGoogleSynthesizer(ctx, cfg.Speech.Language, opts...)
	default:
		return tts.NewEdgeSynthesizer(tts.WithEdgePath(cfg.Speech.EdgePath)), nil
	}
}

// newUploader returns a nil interface when storage is not configured so the
// upload service can report it
func newUploader(ctx context.Context, cfg *config.Config, creds google.Credentials) (distribution.Uploader, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageGCS:
		client, err := gcs.NewClient(ctx, gcs.Config{
			Bucket:       cfg.Storage.GCS.Bucket,
			Prefix:       cfg.Storage.GCS.Prefix,
			Public:       cfg.Storage.GCS.Public,
			SignedURLTTL: cfg.Storage.GCS.SignedURLTTL,
		}, google.StorageOptions(creds))
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil

	case config.StorageDrive:
		opts, err := google.ClientOptions(ctx, creds, drivev3.DriveFileScope)
		if err != nil {
			return nil, nil, fmt.Errorf("drive credentials: %w", err)
		}
		client, err := drive.NewClient(ctx, cfg.Storage.Drive.FolderID, opts)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil

	case config.StorageLocal:
		store, err := localstore.New(cfg.Storage.Local.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	default:
		return nil, nil, nil
	}
}

func newNotifiers(ctx context.Context, cfg *config.Config, creds google.Credentials) ([]notification.Notifier, error) {
	// The webhook notifier is always present: requests may carry their own
	// callback_url even when no global URL is configured
	notifiers := []notification.Notifier{notify.NewWebhook(cfg.Notify.WebhookURL, webhookTimeout)}

	if cfg.Notify.Telegram.BotToken != "" {
		bot, err := notify.NewTelegramBot(cfg.Notify.Telegram.BotToken)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewTelegram(bot, cfg.Notify.Telegram.ChatID))
	}

	if cfg.Notify.Email.Enabled {
		client, err := newGmailClient(ctx, cfg, creds)
		if err != nil {
			return nil, err
		}
		recipients := config.NewRecipientLookup(cfg).All()
		notifiers = append(notifiers, notify.NewEmail(client, recipients))
	}

	return notifiers, nil
}

func newGmailClient(ctx context.Context, cfg *config.Config, creds google.Credentials) (*gmail.Client, error) {
	opts, err := google.ClientOptions(ctx, creds, gmailv1.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials: %w", err)
	}
	svc, err := gmail.NewGoogleGmailService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	from := notification.Recipient{Name: cfg.Notify.Email.FromName, Address: cfg.Notify.Email.FromAddress}
	return gmail.NewClient(from, gmail.WithGmailService(svc)), nil
}

// preflight fails fast when an external tool or backend is unusable
func (c *components) preflight(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	if err := c.builder.VerifyInstalled(ctx); err != nil {
		return fmt.Errorf("ffmpeg verification failed: %w", err)
	}
	if v, ok := c.synth.(verifier); ok {
		if err := v.VerifyInstalled(ctx); err != nil {
			return fmt.Errorf("speech verification failed: %w", err)
		}
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("job store unreachable: %w", err)
	}
	return nil
}

// healthChecks are reported by GET /health
func (c *components) healthChecks() []httpapi.NamedCheck {
	return []httpapi.NamedCheck{
		{Name: "ffmpeg", Check: c.builder.VerifyInstalled},
		{Name: "job_store", Check: c.store.Ping},
	}
}

// redisOpt returns the asynq connection settings
func (c *components) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.cfg.Redis.Addr,
		Password: c.cfg.Redis.Password,
		DB:       c.cfg.Redis.DB,
	}
}

// sweepWorkspaces removes render_* directories left by a crash. Anything
// older than the task timeout cannot belong to a live render.
func (c *components) sweepWorkspaces() {
	removed, err := filesystem.SweepStale(c.cfg.Jobs.WorkDir, c.cfg.Queue.Timeout)
	if err != nil {
		c.logger.Warn().Err(err).Msg("workspace sweep failed")
	}
	if len(removed) > 0 {
		c.logger.Info().Int("removed", len(removed)).Msg("removed stale workspaces")
	}
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

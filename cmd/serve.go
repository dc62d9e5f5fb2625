package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	apprender "github.com/ROJSUWAN/n8n-video-renderer/application/render"
	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/httpapi"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/queue"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
)

var (
	serveHost    string
	servePort    int
	serveWorkers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and render workers",
	Long: `Start the HTTP API on host:port together with background render workers.

The port comes from --port, then the PORT environment variable, then the
config file (default 8080). X-Forwarded-For is honoured from the configured
trusted proxies ("*" trusts every source).

With the redis queue backend, workers can be disabled here and run
separately with "n8n-video-renderer worker".

Examples:
  n8n-video-renderer serve
  PORT=9000 n8n-video-renderer serve
  n8n-video-renderer serve --host 127.0.0.1 --port 8081`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (overrides HOST and config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides PORT and config)")
	serveCmd.Flags().BoolVar(&serveWorkers, "workers", true, "Run render workers in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.preflight(ctx); err != nil {
		return err
	}
	c.sweepWorkspaces()

	q, startWorkers, stopWorkers, err := newQueue(c)
	if err != nil {
		return err
	}
	if serveWorkers {
		if err := startWorkers(ctx); err != nil {
			return err
		}
	} else if cfg.Queue.Backend == config.BackendMemory {
		return errors.New("--workers=false needs the redis queue backend")
	}

	submitter := apprender.NewSubmitter(c.store, q, c.service, c.uploads.Destination())
	server := httpapi.New(httpapi.Config{
		BodyLimit:      cfg.Server.BodyLimitMB << 20,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, submitter, c.store, c.healthChecks(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		// Listen only returns early when the port cannot be bound
		if serveWorkers {
			stopWorkers(context.Background())
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if serveWorkers {
		stopWorkers(shutdownCtx)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// newQueue returns the configured queue plus functions that start and stop
// its workers
func newQueue(c *components) (jobs.Queue, func(context.Context) error, func(context.Context), error) {
	if c.cfg.Queue.Backend == config.BackendRedis {
		client := asynq.NewClient(c.redisOpt())
		c.closers = append(c.closers, client.Close)
		q := queue.NewRedis(client, c.cfg.Queue.MaxRetry, c.cfg.Queue.Timeout)

		srv := queue.NewServer(c.redisOpt(), c.cfg.Queue.Concurrency, c.logger)
		start := func(ctx context.Context) error {
			if err := srv.Start(queue.NewServeMux(c.service.Process)); err != nil {
				return fmt.Errorf("start asynq workers: %w", err)
			}
			return nil
		}
		stop := func(ctx context.Context) { srv.Shutdown() }
		return q, start, stop, nil
	}

	q := queue.NewMemory(c.cfg.Queue.Capacity, c.cfg.Queue.Concurrency, c.logger)
	start := func(ctx context.Context) error {
		// Workers outlive the signal context so Shutdown can drain them
		q.Start(context.WithoutCancel(ctx), c.service.Process)
		return nil
	}
	stop := func(ctx context.Context) {
		if err := q.Shutdown(ctx); err != nil {
			c.logger.Warn().Err(err).Int("pending", q.Pending()).Msg("queue did not drain")
		}
	}
	return q, start, stop, nil
}

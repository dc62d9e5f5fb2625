package cmd

import (
	"fmt"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/queue"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run render workers only",
	Long: `Process render jobs from the redis queue without serving HTTP.

Requires queue.backend and jobs.store set to redis, so that jobs accepted by
"serve --workers=false" on another host can be picked up here.

Example:
  QUEUE_BACKEND=redis JOB_STORE=redis REDIS_ADDR=redis:6379 n8n-video-renderer worker`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if cfg.Queue.Backend != config.BackendRedis {
		return fmt.Errorf("worker needs queue.backend redis, got %q", cfg.Queue.Backend)
	}

	c, err := buildComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.preflight(cmd.Context()); err != nil {
		return err
	}
	c.sweepWorkspaces()

	srv := queue.NewServer(c.redisOpt(), cfg.Queue.Concurrency, logger)
	logger.Info().Int("concurrency", cfg.Queue.Concurrency).Str("redis", cfg.Redis.Addr).Msg("worker started")

	// Run blocks until SIGINT/SIGTERM and then waits for active tasks
	if err := srv.Run(queue.NewServeMux(c.service.Process)); err != nil {
		return fmt.Errorf("asynq worker: %w", err)
	}
	return nil
}

package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

// keyPrefix namespaces job keys in a shared Redis
const keyPrefix = "render:job:"

// KV is the subset of the Redis client used by the store
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	SetXX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis is a render.JobStore shared between API and worker processes
type Redis struct {
	rdb KV
	ttl time.Duration
}

// NewRedis creates a Redis-backed job store
func NewRedis(rdb KV, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func keyJob(id string) string { return keyPrefix + id }

// Create implements render.JobStore
func (s *Redis) Create(ctx context.Context, job *render.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, keyJob(job.ID), string(b), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", render.ErrJobExists, job.ID)
	}
	return nil
}

// Get implements render.JobStore
func (s *Redis) Get(ctx context.Context, id string) (*render.Job, error) {
	raw, err := s.rdb.Get(ctx, keyJob(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, render.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var job render.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Update implements render.JobStore. It refreshes the TTL.
func (s *Redis) Update(ctx context.Context, job *render.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, keyJob(job.ID), string(b), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	if !ok {
		return render.ErrJobNotFound
	}
	return nil
}

// Ping checks the Redis connection
func (s *Redis) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

var _ render.JobStore = (*Redis)(nil)

package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/render"
)

// DefaultTTL is how long finished jobs stay pollable
const DefaultTTL = 24 * time.Hour

// Memory is an in-process render.JobStore. Entries expire ttl after their
// last update and are swept lazily on writes.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*render.Job
	ttl  time.Duration
	now  func() time.Time
}

// NewMemory creates an in-memory job store
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		jobs: make(map[string]*render.Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create implements render.JobStore
func (m *Memory) Create(ctx context.Context, job *render.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", render.ErrJobExists, job.ID)
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

// Get implements render.JobStore
func (m *Memory) Get(ctx context.Context, id string) (*render.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok || m.expired(j) {
		return nil, render.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// Update implements render.JobStore
func (m *Memory) Update(ctx context.Context, job *render.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[job.ID]; !ok || m.expired(j) {
		return render.ErrJobNotFound
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

// Len returns the number of live jobs
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.jobs)
}

// Ping implements a health check; memory is always reachable
func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) expired(j *render.Job) bool {
	return m.now().Sub(j.UpdatedAt) > m.ttl
}

// sweep must be called with the write lock held
func (m *Memory) sweep() {
	for id, j := range m.jobs {
		if m.expired(j) {
			delete(m.jobs, id)
		}
	}
}

var _ render.JobStore = (*Memory)(nil)

package importer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Phase is the coarse state of the current import.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReading    Phase = "reading"
	PhaseProcessing Phase = "processing"
	PhaseCompleted  Phase = "completed"
	PhaseError      Phase = "error"
)

// Status is the progress snapshot served to polling clients.
type Status struct {
	TotalRows  int    `json:"total_rows"`
	CurrentRow int    `json:"current_row"`
	Status     Phase  `json:"status"`
	Message    string `json:"message"`
}

// IdleStatus is the snapshot reported when no import is running.
func IdleStatus() Status {
	return Status{Status: PhaseIdle}
}

// StatusStore holds the single shared progress snapshot. Concurrent imports
// overwrite each other's progress.
type StatusStore interface {
	Get(ctx context.Context) (Status, error)
	Set(ctx context.Context, status Status) error
}

// MemoryStatusStore keeps the snapshot in process memory.
type MemoryStatusStore struct {
	mu     sync.RWMutex
	status Status
}

// NewMemoryStatusStore returns an idle in-process store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{status: IdleStatus()}
}

func (s *MemoryStatusStore) Get(context.Context) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

func (s *MemoryStatusStore) Set(_ context.Context, status Status) error {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	return nil
}

const statusKey = "stockroom:import:status"

// RedisStatusStore shares the snapshot between server replicas.
type RedisStatusStore struct {
	client *redis.Client
	key    string
}

// NewRedisStatusStore stores the snapshot under a fixed key.
func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client, key: statusKey}
}

func (s *RedisStatusStore) Get(ctx context.Context) (Status, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return IdleStatus(), nil
	}
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

func (s *RedisStatusStore) Set(ctx context.Context, status Status) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, 0).Err()
}

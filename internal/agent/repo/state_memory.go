package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// MemoryStateRepository is a bounded in-process checkpoint store. States are
// stored encoded so callers never share history slices with the cache.
type MemoryStateRepository struct {
	cache otter.Cache[string, []byte]
}

// NewMemoryStateRepository builds a store holding at most capacity sessions.
// A positive ttl expires sessions that have not been written for that long.
func NewMemoryStateRepository(capacity int, ttl time.Duration) (*MemoryStateRepository, error) {
	if capacity <= 0 {
		capacity = model.DefaultSessionCapacity
	}
	b := otter.MustBuilder[string, []byte](capacity)
	var (
		cache otter.Cache[string, []byte]
		err   error
	)
	if ttl > 0 {
		cache, err = b.WithTTL(ttl).Build()
	} else {
		cache, err = b.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("build session cache: %w", err)
	}
	return &MemoryStateRepository{cache: cache}, nil
}

func (r *MemoryStateRepository) LoadState(_ context.Context, sessionID string) (*model.State, error) {
	raw, ok := r.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	var st model.State
	if err := json.Unmarshal(raw, &st); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session state")
		return nil, nil
	}
	return &st, nil
}

func (r *MemoryStateRepository) SaveState(_ context.Context, state model.State) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if !r.cache.Set(state.SessionID, b) {
		return fmt.Errorf("session cache rejected state for %s", state.SessionID)
	}
	return nil
}

func (r *MemoryStateRepository) DeleteState(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

// Len returns the number of cached sessions.
func (r *MemoryStateRepository) Len() int {
	return r.cache.Size()
}

func (r *MemoryStateRepository) Close() {
	r.cache.Close()
}

var _ model.StateRepository = (*MemoryStateRepository)(nil)

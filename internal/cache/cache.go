package cache

import (
	"context"
	"time"

	"printdesk/backend/internal/domain"
)

// RewardCache holds derived per-customer reward states so repeated dashboard
// and receipt lookups skip the counter recomputation. Entries are invalidated
// whenever a bill moves the customer's counters.
type RewardCache interface {
	Get(ctx context.Context, key string) (map[string]domain.RewardState, bool, error)
	Set(ctx context.Context, key string, value map[string]domain.RewardState, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type NoopRewardCache struct{}

func (NoopRewardCache) Get(_ context.Context, _ string) (map[string]domain.RewardState, bool, error) {
	return nil, false, nil
}

func (NoopRewardCache) Set(_ context.Context, _ string, _ map[string]domain.RewardState, _ time.Duration) error {
	return nil
}

func (NoopRewardCache) Del(_ context.Context, _ string) error {
	return nil
}

package calls

import (
	"context"
	"time"

	"voiceagent-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisSlotLimiter enforces per-agent concurrent call caps with a Redis
// counter. The TTL bounds how long a leaked slot (process crash between
// acquire and release) can block new calls.
type RedisSlotLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisSlotLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisSlotLimiter {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisSlotLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func slotKey(agentID string) string {
	return "calls:active:" + agentID
}

func (l *RedisSlotLimiter) Acquire(ctx context.Context, agentID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, slotKey(agentID), l.limit, l.ttl)
}

func (l *RedisSlotLimiter) Release(ctx context.Context, agentID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, slotKey(agentID))
}

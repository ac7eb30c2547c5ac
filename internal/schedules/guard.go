package schedules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carecall-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// FireGuard lets exactly one evaluator claim a (schedule, minute) slot, so
// overlapping ticks or several replicas never dispatch the same call twice.
type FireGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
}

func fireKey(scheduleID int64, minute time.Time) string {
	return fmt.Sprintf("schedule:%d:%s", scheduleID, minute.Format("200601021504"))
}

const defaultClaimTTL = 2 * time.Minute

// MemoryFireGuard is a single-process FireGuard.
type MemoryFireGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration
	clock  func() time.Time
}

func NewMemoryFireGuard() *MemoryFireGuard {
	return &MemoryFireGuard{claims: map[string]time.Time{}, ttl: defaultClaimTTL, clock: time.Now}
}

func (g *MemoryFireGuard) Claim(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock()
	for k, exp := range g.claims {
		if now.After(exp) {
			delete(g.claims, k)
		}
	}
	if _, taken := g.claims[key]; taken {
		return false, nil
	}
	g.claims[key] = now.Add(g.ttl)
	return true, nil
}

// RedisFireGuard shares claims across replicas.
type RedisFireGuard struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisFireGuard(rdb redis.Cmdable) *RedisFireGuard {
	return &RedisFireGuard{rdb: rdb, prefix: "carecall:fire:", ttl: defaultClaimTTL}
}

func (g *RedisFireGuard) Claim(ctx context.Context, key string) (bool, error) {
	return utils.ClaimOnce(ctx, g.rdb, g.prefix+key, g.ttl)
}

package alertcheck

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TriggerLock serializes the count/compare/insert step for one rule across
// evaluator instances. This is the only place the core needs true mutual
// exclusion: without it two instances could count the same log set and insert
// two history rows for one trigger.
type TriggerLock interface {
	// Acquire returns false when another holder owns the rule. The release
	// function is safe to call once regardless of the outcome.
	Acquire(ctx context.Context, ruleID string) (bool, func(), error)
}

// RedisTriggerLock implements TriggerLock with SET NX and a TTL lease.
// Release only deletes the key when the token still matches, so an expired
// lease cannot release a successor's lock.
type RedisTriggerLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTriggerLock(rdb *redis.Client, ttl time.Duration) *RedisTriggerLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTriggerLock{rdb: rdb, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func (l *RedisTriggerLock) Acquire(ctx context.Context, ruleID string) (bool, func(), error) {
	key := "alert:rule:lock:" + ruleID
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, func() {}, err
	}
	if !ok {
		return false, func() {}, nil
	}
	release := func() {
		_, _ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Result()
	}
	return true, release, nil
}

// NoopLock is used when the deployment runs a single evaluator and no Redis
// is configured.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, string) (bool, func(), error) {
	return true, func() {}, nil
}

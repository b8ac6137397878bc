package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bus-ticketing/internal/status"
)

// releaseScript deletes the lock key only if it still holds our token, so
// an expired lock reacquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TicketLock serializes validate-and-use attempts per ticket across
// processes. Contention is rejected immediately rather than queued: a
// second scan of the same QR code within the lock window is either a
// double-scan or a replay, and the caller retries.
type TicketLock struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewTicketLock(redisClient *redis.Client, ttl time.Duration) *TicketLock {
	return &TicketLock{redis: redisClient, ttl: ttl}
}

// Acquire takes the per-ticket lock and returns a release func. It fails
// with status.ErrLockContended when another validation holds the lock.
func (l *TicketLock) Acquire(ctx context.Context, ticketID string) (func(), error) {
	key := fmt.Sprintf("lock:ticket:%s", ticketID)

	token, err := GenerateCode(8)
	if err != nil {
		return nil, err
	}

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire ticket lock: %w", err)
	}
	if !ok {
		return nil, status.ErrLockContended
	}

	release := func() {
		releaseScript.Run(context.Background(), l.redis, []string{key}, token)
	}
	return release, nil
}

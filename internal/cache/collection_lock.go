package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultLockTTL   = 30 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

var releaseScript = redisv9.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CollectionLock is a cross-process lock built on SET NX with a TTL, so a
// crashed holder cannot block collection creation forever.
type CollectionLock struct {
	client *redisv9.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCollectionLock(client *redisv9.Client, ttl time.Duration, log zerolog.Logger) *CollectionLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &CollectionLock{client: client, ttl: ttl, log: log}
}

func (l *CollectionLock) Lock(ctx context.Context, key string) (func(), error) {
	key = "rag:lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis acquire lock failed: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// release on a fresh context so a cancelled request still frees the key
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redisv9.Nil) {
			l.log.Warn().Err(err).Str("key", key).Msg("redis release lock failed, waiting for ttl")
		}
	}, nil
}

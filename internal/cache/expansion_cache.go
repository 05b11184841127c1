package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

const DefaultExpansionTTL = 24 * time.Hour

// ExpansionCache keeps multi-query expansions keyed by a hash of the
// question.
type ExpansionCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewExpansionCache(client *redisv9.Client, ttl time.Duration) *ExpansionCache {
	if ttl <= 0 {
		ttl = DefaultExpansionTTL
	}
	return &ExpansionCache{client: client, ttl: ttl}
}

func (c *ExpansionCache) Get(ctx context.Context, question string) ([]string, bool, error) {
	raw, err := c.client.Get(ctx, expansionKey(question)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get expansion failed: %w", err)
	}

	var queries []string
	if err := json.Unmarshal([]byte(raw), &queries); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached expansion failed: %w", err)
	}
	return queries, true, nil
}

func (c *ExpansionCache) Set(ctx context.Context, question string, queries []string) error {
	payload, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("marshal expansion failed: %w", err)
	}
	if err := c.client.Set(ctx, expansionKey(question), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set expansion failed: %w", err)
	}
	return nil
}

func expansionKey(question string) string {
	sum := sha256.Sum256([]byte(question))
	return "rag:expansion:" + hex.EncodeToString(sum[:])
}

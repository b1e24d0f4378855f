package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// SuggestCache memoizes suggestion responses per normalized query for a short
// TTL, bounding remote completion-call volume under rapid retyping.
type SuggestCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSuggestCache(client *redis.Client, prefix string, ttl time.Duration) *SuggestCache {
	if prefix == "" {
		prefix = "suggest"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SuggestCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *SuggestCache) Get(ctx context.Context, query string) ([]domain.Suggestion, bool, error) {
	raw, err := c.client.Get(ctx, c.key(query)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis suggest cache: get: %w", err)
	}

	var suggestions []domain.Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		return nil, false, fmt.Errorf("redis suggest cache: invalid payload: %w", err)
	}
	return suggestions, true, nil
}

func (c *SuggestCache) Set(ctx context.Context, query string, suggestions []domain.Suggestion) error {
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("redis suggest cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(query), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis suggest cache: set: %w", err)
	}
	return nil
}

func (c *SuggestCache) key(query string) string {
	return fmt.Sprintf("%s:%s", c.prefix, strings.ToLower(strings.TrimSpace(query)))
}

package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// Counter provides increment and aggregate reads over prefixed keys.
type Counter struct {
	client *redis.Client
	prefix string
}

func NewCounter(client *redis.Client, prefix string) *Counter {
	return &Counter{
		client: client,
		prefix: prefix,
	}
}

func (c *Counter) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	// A plain INCRBY keeps the hot read path cheap.
	return c.client.IncrBy(ctx, c.key(key), delta).Result()
}

func (c *Counter) GetAll(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}

	// MGET cuts round-trips when the full set is needed at once.
	values, err := c.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(keys))
	for i, raw := range values {
		if raw == nil {
			result[keys[i]] = 0
			continue
		}

		switch v := raw.(type) {
		case string:
			num, convErr := strconv.ParseInt(v, 10, 64)
			if convErr != nil {
				return nil, fmt.Errorf("redis counter: invalid value for %s: %w", keys[i], convErr)
			}
			result[keys[i]] = num
		case int64:
			result[keys[i]] = v
		default:
			return nil, fmt.Errorf("redis counter: unexpected type %T", raw)
		}
	}

	return result, nil
}

func (c *Counter) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return fmt.Sprintf("%s:%s", c.prefix, k)
}

var _ domain.Counter = (*Counter)(nil)

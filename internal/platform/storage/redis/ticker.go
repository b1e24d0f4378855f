package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// Ticker keeps the most recent nominations in a capped redis list.
type Ticker struct {
	client *redis.Client
	key    string
	cap    int64
}

func NewTicker(client *redis.Client, key string, capacity int64) *Ticker {
	if capacity <= 0 {
		capacity = 20
	}
	return &Ticker{
		client: client,
		key:    key,
		cap:    capacity,
	}
}

func (t *Ticker) Push(ctx context.Context, entry domain.TickerEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis ticker: marshal entry: %w", err)
	}

	pipe := t.client.TxPipeline()
	pipe.LPush(ctx, t.key, payload)
	// LTRIM keeps only the newest entries; the strip never needs more.
	pipe.LTrim(ctx, t.key, 0, t.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis ticker: push entry: %w", err)
	}
	return nil
}

func (t *Ticker) Recent(ctx context.Context, limit int) ([]domain.TickerEntry, error) {
	if limit <= 0 || int64(limit) > t.cap {
		limit = int(t.cap)
	}

	raw, err := t.client.LRange(ctx, t.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ticker: range: %w", err)
	}

	entries := make([]domain.TickerEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.TickerEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("redis ticker: invalid payload: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ domain.Ticker = (*Ticker)(nil)

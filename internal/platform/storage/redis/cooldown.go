package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore persists the single last-accepted-vote timestamp per visitor.
// The TTL equals the cooldown window, so an absent key means the visitor is
// clear to vote again.
type CooldownStore struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewCooldownStore(client *redis.Client, prefix string, window time.Duration) *CooldownStore {
	if prefix == "" {
		prefix = "cooldown"
	}
	return &CooldownStore{
		client: client,
		prefix: prefix,
		window: window,
	}
}

// LastVoteAt returns the stored timestamp and whether one exists.
func (s *CooldownStore) LastVoteAt(ctx context.Context, visitorID string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key(visitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis cooldown: get: %w", err)
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis cooldown: invalid timestamp: %w", err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (s *CooldownStore) SetLastVoteAt(ctx context.Context, visitorID string, at time.Time) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := s.client.Set(ctx, s.key(visitorID), value, s.window).Err(); err != nil {
		return fmt.Errorf("redis cooldown: set: %w", err)
	}
	return nil
}

func (s *CooldownStore) key(visitorID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, visitorID)
}

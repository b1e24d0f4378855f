// Package antibot implements the pre-submission vote gate: a honeypot check
// plus a per-visitor cooldown, with a noop mode for when the gate is off.
package antibot

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/inspireboard/internal/domain"
)

var (
	ErrHoneypotTripped = errors.New("honeypot field filled")
	ErrCooldownActive  = errors.New("vote cooldown active")
)

// TimestampStore persists the single last-accepted-vote timestamp per client.
type TimestampStore interface {
	LastVoteAt(ctx context.Context, clientKey string) (time.Time, bool, error)
	SetLastVoteAt(ctx context.Context, clientKey string, at time.Time) error
}

// Guard rejects automated form fills and votes inside the cooldown window.
// It is a deterrent, not a security boundary: storage failures degrade open.
type Guard struct {
	store    TimestampStore
	cooldown time.Duration
	clock    domain.Clock
	logger   *slog.Logger
}

func NewGuard(store TimestampStore, cooldown time.Duration, clock domain.Clock, logger *slog.Logger) *Guard {
	return &Guard{
		store:    store,
		cooldown: cooldown,
		clock:    clock,
		logger:   logger,
	}
}

func (g *Guard) Check(ctx context.Context, probe domain.VoteProbe) error {
	// A filled hidden field means a script walked the form.
	if probe.Honeypot != "" {
		return ErrHoneypotTripped
	}

	if g.store == nil || g.cooldown <= 0 {
		return nil
	}

	key := clientKey(probe)
	now := g.clock.Now()

	last, ok, err := g.store.LastVoteAt(ctx, key)
	if err != nil {
		// The gate never blocks votes because redis is down.
		g.logger.Warn("bot guard store unavailable, allowing vote", "err", err)
		return nil
	}
	if ok && now.Sub(last) < g.cooldown {
		return ErrCooldownActive
	}

	// The window is consumed on acceptance, before the vote settles. A failed
	// downstream write still spends the cooldown; that tradeoff is deliberate.
	if err := g.store.SetLastVoteAt(ctx, key, now); err != nil {
		g.logger.Warn("bot guard could not persist timestamp", "err", err)
	}
	return nil
}

func clientKey(probe domain.VoteProbe) string {
	if probe.VisitorID != "" {
		return probe.VisitorID
	}
	// Cookie-less clients fall back to a hashed IP/UA pair so raw addresses
	// never land in redis.
	base := fmt.Sprintf("%s|%s", probe.SourceIP, probe.UserAgent)
	hash := sha1.Sum([]byte(base))
	return hex.EncodeToString(hash[:])
}

var _ domain.BotGuard = (*Guard)(nil)

// Package worker holds the asynchronous side of a vote: the audit row,
// the counters and the ticker, fed from the redis queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelojr/inspireboard/internal/app/voting"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/metrics"
)

// VoteProcessor persists the audit row and keeps counters and the ticker
// current. The leaderboard count itself was already written synchronously;
// everything here is derived data.
type VoteProcessor struct {
	repo    domain.VoteRepository
	counter domain.Counter
	ticker  domain.Ticker
	clock   domain.Clock
}

func NewVoteProcessor(repo domain.VoteRepository, counter domain.Counter, ticker domain.Ticker, clock domain.Clock) *VoteProcessor {
	return &VoteProcessor{
		repo:    repo,
		counter: counter,
		ticker:  ticker,
		clock:   clock,
	}
}

func (p *VoteProcessor) Process(ctx context.Context, vote domain.Vote) error {
	start := time.Now()

	// A vote that arrived without a timestamp gets stamped on arrival.
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = p.clock.Now()
	}

	if err := p.repo.Record(ctx, vote); err != nil {
		return fmt.Errorf("worker: record vote %s: %w", vote.ID, err)
	}

	if p.counter != nil {
		if _, err := p.counter.Increment(ctx, voting.CounterKeyHour(vote.CreatedAt), 1); err != nil {
			return fmt.Errorf("worker: increment hourly counter %s: %w", vote.Handle, err)
		}
	}

	if p.ticker != nil {
		if err := p.ticker.Push(ctx, domain.TickerEntry{
			Name:    vote.Name,
			Handle:  vote.Handle,
			VotedAt: vote.CreatedAt,
		}); err != nil {
			return fmt.Errorf("worker: push ticker entry %s: %w", vote.Handle, err)
		}
	}

	metrics.IncVoteProcessed()
	metrics.ObserveProcessingDuration(time.Since(start).Seconds())

	return nil
}

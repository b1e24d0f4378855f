// Package voting implements the authoritative vote write and the read paths
// that hang off it: the recent-nomination ticker and the hourly series.
package voting

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/ids"
)

var ErrInvalidNomination = errors.New("invalid nomination")

// Service performs the create-or-increment write synchronously, so callers
// can order their refetch strictly after the acknowledgment, and pushes the
// audit event onto the queue for the worker.
type Service struct {
	people  domain.PersonRepository
	counter domain.Counter
	queue   domain.Queue
	ticker  domain.Ticker
	clock   domain.Clock
	ids     *ids.Generator
	logger  *slog.Logger
}

func NewService(
	people domain.PersonRepository,
	counter domain.Counter,
	queue domain.Queue,
	ticker domain.Ticker,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		people:  people,
		counter: counter,
		queue:   queue,
		ticker:  ticker,
		clock:   clock,
		ids:     idsGen,
		logger:  logger,
	}
}

// Submit registers one vote keyed by (handle, name, category). The person
// row is created on the first vote for a handle and incremented afterwards.
func (s *Service) Submit(ctx context.Context, n domain.NormalizedPerson, probe domain.VoteProbe) (domain.Person, error) {
	if !n.Valid() {
		return domain.Person{}, fmt.Errorf("%w: missing name or handle", ErrInvalidNomination)
	}

	person, err := s.people.RegisterVote(ctx, n.Handle, n.DisplayName, n.Category)
	if err != nil {
		return domain.Person{}, err
	}

	vote := domain.Vote{
		ID:        domain.VoteID(s.ids.New()),
		Handle:    n.Handle,
		Name:      n.DisplayName,
		Category:  n.Category,
		SourceID:  sourceID(probe),
		UserAgent: probe.UserAgent,
		CreatedAt: s.clock.Now(),
	}

	// The vote is already counted; a queue outage only degrades the audit
	// trail and the ticker, so it must not fail the submission.
	if s.queue != nil {
		if err := s.queue.PublishVote(ctx, vote); err != nil {
			s.logger.Error("vote accepted but not queued", "vote", vote.ID, "err", err)
		}
	}

	return person, nil
}

// Recent exposes the live strip of the latest accepted nominations.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.TickerEntry, error) {
	if s.ticker == nil {
		return []domain.TickerEntry{}, nil
	}
	return s.ticker.Recent(ctx, limit)
}

// HourlyTotals reads the trailing window of per-hour counters the worker
// maintains. Hours without votes are omitted.
func (s *Service) HourlyTotals(ctx context.Context) ([]domain.HourlyTotal, error) {
	if s.counter == nil {
		return []domain.HourlyTotal{}, nil
	}

	now := s.clock.Now().UTC().Truncate(time.Hour)
	hours := make([]time.Time, 0, HourlyWindow)
	keys := make([]string, 0, HourlyWindow)
	for i := HourlyWindow - 1; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		hours = append(hours, hour)
		keys = append(keys, CounterKeyHour(hour))
	}

	values, err := s.counter.GetAll(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("voting: hourly totals: %w", err)
	}

	totals := make([]domain.HourlyTotal, 0, len(hours))
	for i, hour := range hours {
		if total := values[keys[i]]; total > 0 {
			totals = append(totals, domain.HourlyTotal{Hour: hour, Total: total})
		}
	}
	return totals, nil
}

// sourceID keeps the audit trail pseudonymous: the visitor token when one
// exists, otherwise a hash of the address pair, never the raw IP.
func sourceID(probe domain.VoteProbe) string {
	if probe.VisitorID != "" {
		return probe.VisitorID
	}
	if probe.SourceIP == "" && probe.UserAgent == "" {
		return ""
	}
	hash := sha1.Sum([]byte(probe.SourceIP + "|" + probe.UserAgent))
	return hex.EncodeToString(hash[:])
}

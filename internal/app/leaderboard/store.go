// Package leaderboard holds the ranked list of people and the derived views
// the UI reads. The remote store is authoritative: every refresh replaces the
// held list wholesale.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/metrics"
)

const (
	// TopTierSize is the podium: ranks 1-3. Everything below is mid tier.
	TopTierSize = 3

	minSearchLength = 2
)

// Store guards the snapshot with a RWMutex; only Refresh and StageOptimistic
// mutate it, readers always get copies.
type Store struct {
	mu      sync.RWMutex
	repo    domain.PersonRepository
	limit   int
	people  []domain.Person
	loaded  bool
	lastErr error
}

func NewStore(repo domain.PersonRepository, limit int) *Store {
	if limit <= 0 {
		limit = 50
	}
	return &Store{
		repo:  repo,
		limit: limit,
	}
}

// Refresh fetches the authoritative top-N and swaps it in. A failed fetch
// leaves whatever was held before untouched and records a retryable error;
// Retry is simply calling Refresh again.
func (s *Store) Refresh(ctx context.Context) error {
	fresh, err := s.repo.TopByVotes(ctx, s.limit)
	if err != nil {
		metrics.ObserveLeaderboardRefresh("error")
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("leaderboard: refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		overlayTrends(s.people, fresh)
	}

	s.people = fresh
	s.loaded = true
	s.lastErr = nil
	metrics.ObserveLeaderboardRefresh("ok")
	return nil
}

// overlayTrends marks rank movement relative to the previous snapshot.
// Purely advisory; optimistic placeholders are ignored as reference points.
func overlayTrends(previous, fresh []domain.Person) {
	prevRank := make(map[string]int, len(previous))
	for i, p := range previous {
		if p.Optimistic() {
			continue
		}
		prevRank[p.Handle] = i
	}

	for i := range fresh {
		before, known := prevRank[fresh[i].Handle]
		switch {
		case !known:
			fresh[i].LastTrend = domain.TrendUp
		case i < before:
			fresh[i].LastTrend = domain.TrendUp
		case i > before:
			fresh[i].LastTrend = domain.TrendDown
		default:
			fresh[i].LastTrend = domain.TrendNeutral
		}
	}
}

// StageOptimistic surfaces a just-submitted entry in rank order before the
// authoritative refetch lands. The next Refresh supersedes it.
func (s *Store) StageOptimistic(p domain.Person) {
	if p.Handle == "" || p.Name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]domain.Person, 0, len(s.people)+1)
	for _, held := range s.people {
		// One optimistic entry per handle; replace instead of stacking.
		if held.Optimistic() && held.Handle == p.Handle {
			continue
		}
		staged = append(staged, held)
	}
	staged = append(staged, p)

	sort.SliceStable(staged, func(i, j int) bool {
		return staged[i].VoteCount > staged[j].VoteCount
	})
	s.people = staged
}

// Snapshot returns a copy of the held list; callers must not mutate shared
// state, and with a copy they cannot.
func (s *Store) Snapshot() []domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Person(nil), s.people...)
}

// TopTier is the podium: the first three entries in rank order.
func (s *Store) TopTier() []domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(TopTierSize, len(s.people))
	return append([]domain.Person(nil), s.people[:n]...)
}

// MidTier is everything from rank 4 down.
func (s *Store) MidTier() []domain.Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.people) <= TopTierSize {
		return []domain.Person{}
	}
	return append([]domain.Person(nil), s.people[TopTierSize:]...)
}

// Search matches a case-insensitive substring over name or handle. Queries
// shorter than two characters return nothing, same as the input widget.
func (s *Store) Search(query string) []domain.Person {
	trimmed := strings.TrimSpace(query)
	if len([]rune(trimmed)) < minSearchLength {
		return []domain.Person{}
	}
	needle := strings.ToLower(trimmed)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := []domain.Person{}
	for _, p := range s.people {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Handle), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}

// LastError exposes the retryable state of the most recent refresh attempt.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Loaded reports whether at least one refresh has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

package domain

import (
	"context"
	"time"
)

// PersonRepository is the authoritative store behind the leaderboard.
type PersonRepository interface {
	// TopByVotes returns at most limit people ordered by vote count descending.
	TopByVotes(ctx context.Context, limit int) ([]Person, error)
	FindByHandle(ctx context.Context, handle string) (Person, error)
	// RegisterVote applies the create-or-increment semantics keyed by handle
	// and returns the person as stored after the write.
	RegisterVote(ctx context.Context, handle, name, category string) (Person, error)
}

// VoteRepository keeps the per-vote audit trail written by the worker.
// Aggregate reads live on Counter; the table exists for reconciliation.
type VoteRepository interface {
	Record(ctx context.Context, vote Vote) error
}

// Counter is incremented by the worker and read back for the hourly series.
type Counter interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	GetAll(ctx context.Context, keys []string) (map[string]int64, error)
}

// Queue carries accepted votes from the API to the worker.
type Queue interface {
	PublishVote(ctx context.Context, vote Vote) error
	ConsumeVotes(ctx context.Context, handler func(context.Context, Vote) error) error
}

// Ticker holds the most recent nominations for the live strip.
type Ticker interface {
	Push(ctx context.Context, entry TickerEntry) error
	Recent(ctx context.Context, limit int) ([]TickerEntry, error)
}

// BotGuard is consulted before every vote submission.
type BotGuard interface {
	Check(ctx context.Context, probe VoteProbe) error
}

// Normalizer turns free-text input into a canonical person record. It must
// not fail for non-empty input; implementations degrade to a deterministic
// local fallback.
type Normalizer interface {
	Normalize(ctx context.Context, input string) (NormalizedPerson, error)
}

// Suggester returns up to a handful of autocomplete candidates. Errors are
// advisory; callers treat any failure as an empty list.
type Suggester interface {
	Suggest(ctx context.Context, partial string) ([]Suggestion, error)
}

type Clock interface {
	Now() time.Time
}

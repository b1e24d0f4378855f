// Package nomination drives a single visitor's submission through its
// states: guard, normalize, confirm, authoritative write, refetch.
package nomination

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/ids"
)

// State is where a visitor's submission currently sits.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSubmitting           State = "submitting"
	StateSuccess              State = "success"
	StateFailed               State = "failed"
)

var (
	ErrNoPendingNomination = errors.New("no pending nomination")
	ErrSubmissionInFlight  = errors.New("submission already in flight")
)

// Submitter performs the authoritative create-or-increment write.
type Submitter interface {
	Submit(ctx context.Context, n domain.NormalizedPerson, probe domain.VoteProbe) (domain.Person, error)
}

// Board is the slice of the leaderboard store the pipeline touches.
type Board interface {
	StageOptimistic(p domain.Person)
	Refresh(ctx context.Context) error
}

// Pipeline is one visitor's state machine. All transitions hold the mutex;
// the submission itself runs unlocked so a second request can be rejected
// with ErrSubmissionInFlight instead of blocking behind it.
type Pipeline struct {
	mu        sync.Mutex
	state     State
	candidate domain.NormalizedPerson
	probe     domain.VoteProbe
	result    domain.Person
	lastErr   error
	touchedAt time.Time

	guard      domain.BotGuard
	normalizer domain.Normalizer
	submitter  Submitter
	board      Board
	clock      domain.Clock
	ids        *ids.Generator
	logger     *slog.Logger
}

func NewPipeline(
	guard domain.BotGuard,
	normalizer domain.Normalizer,
	submitter Submitter,
	board Board,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
) *Pipeline {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	p := &Pipeline{
		state:      StateIdle,
		guard:      guard,
		normalizer: normalizer,
		submitter:  submitter,
		board:      board,
		clock:      clock,
		ids:        idsGen,
		logger:     logger,
	}
	p.touchedAt = clock.Now()
	return p
}

// Begin takes the raw input through the guard and the normalizer. Free text
// parks in AwaitingConfirmation; a pre-confirmed pick (suggestion click)
// goes straight to submission.
func (p *Pipeline) Begin(ctx context.Context, input string, preConfirmed bool, probe domain.VoteProbe) (State, domain.NormalizedPerson, error) {
	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return StateSubmitting, domain.NormalizedPerson{}, ErrSubmissionInFlight
	}
	p.touchedAt = p.clock.Now()
	p.mu.Unlock()

	if err := p.guard.Check(ctx, probe); err != nil {
		return p.State(), domain.NormalizedPerson{}, err
	}

	candidate, err := p.normalizer.Normalize(ctx, input)
	if err != nil {
		return p.State(), domain.NormalizedPerson{}, err
	}

	p.mu.Lock()
	p.candidate = candidate
	p.probe = probe
	if !preConfirmed {
		p.state = StateAwaitingConfirmation
		p.mu.Unlock()
		return StateAwaitingConfirmation, candidate, nil
	}
	p.state = StateSubmitting
	p.mu.Unlock()

	return p.submit(ctx, candidate, probe)
}

// Vote submits an already-normalized pick, bypassing the confirmation step.
// Suggestion clicks land here: the candidate fields came from the suggester,
// so there is nothing left to confirm.
func (p *Pipeline) Vote(ctx context.Context, candidate domain.NormalizedPerson, probe domain.VoteProbe) (State, domain.NormalizedPerson, error) {
	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return StateSubmitting, domain.NormalizedPerson{}, ErrSubmissionInFlight
	}
	p.candidate = candidate
	p.probe = probe
	p.state = StateSubmitting
	p.touchedAt = p.clock.Now()
	p.mu.Unlock()

	if err := p.guard.Check(ctx, probe); err != nil {
		p.mu.Lock()
		p.state = StateIdle
		p.mu.Unlock()
		return StateIdle, domain.NormalizedPerson{}, err
	}

	return p.submit(ctx, candidate, probe)
}

// Confirm moves a parked candidate into submission. Only valid from
// AwaitingConfirmation.
func (p *Pipeline) Confirm(ctx context.Context) (State, domain.NormalizedPerson, error) {
	p.mu.Lock()
	switch p.state {
	case StateSubmitting:
		p.mu.Unlock()
		return StateSubmitting, domain.NormalizedPerson{}, ErrSubmissionInFlight
	case StateAwaitingConfirmation:
	default:
		state := p.state
		p.mu.Unlock()
		return state, domain.NormalizedPerson{}, ErrNoPendingNomination
	}
	candidate := p.candidate
	probe := p.probe
	p.state = StateSubmitting
	p.touchedAt = p.clock.Now()
	p.mu.Unlock()

	return p.submit(ctx, candidate, probe)
}

// submit stages the optimistic entry, performs the write, and issues exactly
// one refetch strictly after the acknowledgment. Entered in StateSubmitting.
func (p *Pipeline) submit(ctx context.Context, candidate domain.NormalizedPerson, probe domain.VoteProbe) (State, domain.NormalizedPerson, error) {
	p.board.StageOptimistic(domain.Person{
		ID:        domain.PersonID(domain.OptimisticIDPrefix + p.ids.New()),
		Name:      candidate.DisplayName,
		Handle:    candidate.Handle,
		Category:  candidate.Category,
		VoteCount: 1,
		LastTrend: domain.TrendUp,
	})

	person, err := p.submitter.Submit(ctx, candidate, probe)
	if err != nil {
		// The optimistic entry stays on the board; the next successful
		// refresh supersedes it either way.
		p.mu.Lock()
		p.state = StateFailed
		p.lastErr = err
		p.mu.Unlock()
		return StateFailed, candidate, err
	}

	if err := p.board.Refresh(ctx); err != nil {
		p.logger.Warn("post-vote refresh failed", "handle", candidate.Handle, "err", err)
	}

	p.mu.Lock()
	p.state = StateSuccess
	p.result = person
	p.lastErr = nil
	p.mu.Unlock()
	return StateSuccess, candidate, nil
}

// Cancel discards a parked candidate. No side effects on the board.
func (p *Pipeline) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAwaitingConfirmation {
		return ErrNoPendingNomination
	}
	p.state = StateIdle
	p.candidate = domain.NormalizedPerson{}
	p.touchedAt = p.clock.Now()
	return nil
}

// Acknowledge clears a terminal state back to Idle so the visitor can
// nominate again. A no-op in any other state.
func (p *Pipeline) Acknowledge() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSuccess || p.state == StateFailed {
		p.state = StateIdle
		p.candidate = domain.NormalizedPerson{}
		p.result = domain.Person{}
		p.lastErr = nil
	}
	p.touchedAt = p.clock.Now()
	return p.state
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Candidate returns the parked nomination while one awaits confirmation.
func (p *Pipeline) Candidate() (domain.NormalizedPerson, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateAwaitingConfirmation {
		return domain.NormalizedPerson{}, false
	}
	return p.candidate, true
}

// Result returns the stored person after a successful submission.
func (p *Pipeline) Result() (domain.Person, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSuccess {
		return domain.Person{}, false
	}
	return p.result, true
}

func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Pipeline) idleSince() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.touchedAt, p.state == StateIdle
}

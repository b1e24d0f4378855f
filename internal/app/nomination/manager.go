package nomination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/ids"
)

// DefaultMaxIdle is how long an Idle pipeline survives between requests
// before the sweeper drops it.
const DefaultMaxIdle = 30 * time.Minute

// Manager hands out one Pipeline per visitor and evicts the ones that went
// quiet. Pipelines in a non-idle state are never evicted.
type Manager struct {
	mu        sync.Mutex
	pipelines map[string]*Pipeline
	maxIdle   time.Duration

	guard      domain.BotGuard
	normalizer domain.Normalizer
	submitter  Submitter
	board      Board
	clock      domain.Clock
	ids        *ids.Generator
	logger     *slog.Logger
}

func NewManager(
	guard domain.BotGuard,
	normalizer domain.Normalizer,
	submitter Submitter,
	board Board,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
) *Manager {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Manager{
		pipelines:  map[string]*Pipeline{},
		maxIdle:    DefaultMaxIdle,
		guard:      guard,
		normalizer: normalizer,
		submitter:  submitter,
		board:      board,
		clock:      clock,
		ids:        idsGen,
		logger:     logger,
	}
}

// Pipeline returns the visitor's pipeline, creating one on first sight.
func (m *Manager) Pipeline(visitorID string) *Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pipelines[visitorID]; ok {
		return p
	}
	p := NewPipeline(m.guard, m.normalizer, m.submitter, m.board, m.clock, m.ids, m.logger)
	m.pipelines[visitorID] = p
	return p
}

// Sweep drops pipelines that have been Idle longer than maxIdle.
func (m *Manager) Sweep() int {
	cutoff := m.clock.Now().Add(-m.maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, p := range m.pipelines {
		touched, idle := p.idleSince()
		if idle && touched.Before(cutoff) {
			delete(m.pipelines, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on the given interval until the context ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("evicted idle pipelines", "count", n)
			}
		}
	}
}

// Len reports how many pipelines are currently held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pipelines)
}

package antibot

import (
	"context"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// Noop represents a disabled guard.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (Noop) Check(ctx context.Context, probe domain.VoteProbe) error {
	// Empty implementation used when the guard is switched off via config.
	return nil
}

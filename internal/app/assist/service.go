// Package assist turns free-text user input into canonical person records
// and autocomplete suggestions, backed by the hosted completion API with a
// deterministic offline fallback.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/metrics"
)

const (
	// MaxSuggestions bounds what the provider ever returns.
	MaxSuggestions = 6
	// MinQueryLength below which no remote call is made at all.
	MinQueryLength = 2

	defaultCategory = "Creator"
)

var ErrEmptyInput = errors.New("assist: empty input")

// Completioner is the slice of the genai client the service needs.
type Completioner interface {
	GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) ([]byte, error)
	Configured() bool
}

// SuggestionCache memoizes suggestion lookups; optional.
type SuggestionCache interface {
	Get(ctx context.Context, query string) ([]domain.Suggestion, bool, error)
	Set(ctx context.Context, query string, suggestions []domain.Suggestion) error
}

type Service struct {
	completions Completioner
	cache       SuggestionCache
	logger      *slog.Logger
}

func NewService(completions Completioner, cache SuggestionCache, logger *slog.Logger) *Service {
	return &Service{
		completions: completions,
		cache:       cache,
		logger:      logger,
	}
}

// Configured reports whether the remote credential is present; the relay
// uses this to answer with a server-misconfiguration error.
func (s *Service) Configured() bool {
	return s.completions != nil && s.completions.Configured()
}

var normalizeSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "displayName": {"type": "STRING"},
    "handle": {"type": "STRING"},
    "category": {"type": "STRING"},
    "isValid": {"type": "BOOLEAN"}
  }
}`)

type normalizePayload struct {
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
	Category    string `json:"category"`
	IsValid     bool   `json:"isValid"`
}

// Normalize resolves free text into a canonical person record. It only fails
// on empty input; every remote or validation problem degrades to Fallback so
// the vote flow keeps working offline.
func (s *Service) Normalize(ctx context.Context, input string) (domain.NormalizedPerson, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.NormalizedPerson{}, ErrEmptyInput
	}

	if s.completions == nil {
		metrics.ObserveAssistRequest("normalize", "fallback")
		return Fallback(trimmed), nil
	}

	prompt := fmt.Sprintf(`You are helping identify a person from user input: %q

Your task:
1. Identify who this person is (could be famous, creator, entrepreneur, artist, athlete, etc.)
2. If it's a misspelling, find the correct person
3. If it's a handle (with or without @), identify the person
4. Return their full name, Twitter/X handle (without @), and category

Categories should be ONE word: Tech, Creator, Artist, Athlete, Business, Music, Science, etc.

Return JSON with: displayName, handle, category, isValid (true if confident match)`, trimmed)

	raw, err := s.completions.GenerateJSON(ctx, prompt, normalizeSchema)
	if err != nil {
		s.logger.Warn("normalization call failed, using fallback", "err", err)
		metrics.ObserveAssistRequest("normalize", "fallback")
		return Fallback(trimmed), nil
	}

	var payload normalizePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn("normalization response unparsable, using fallback", "err", err)
		metrics.ObserveAssistRequest("normalize", "fallback")
		return Fallback(trimmed), nil
	}

	// A result without the two required fields is a failed normalization.
	if payload.DisplayName == "" || payload.Handle == "" {
		metrics.ObserveAssistRequest("normalize", "fallback")
		return Fallback(trimmed), nil
	}

	category := payload.Category
	if category == "" {
		category = defaultCategory
	}

	metrics.ObserveAssistRequest("normalize", "ok")
	return domain.NormalizedPerson{
		DisplayName: payload.DisplayName,
		Handle:      CleanHandle(payload.Handle),
		Category:    category,
	}, nil
}

var suggestSchema = json.RawMessage(`{
  "type": "ARRAY",
  "items": {
    "type": "OBJECT",
    "properties": {
      "name": {"type": "STRING"},
      "handle": {"type": "STRING"}
    }
  }
}`)

// Suggest returns up to MaxSuggestions candidates for a partial input.
// Inputs shorter than MinQueryLength short-circuit without any remote call,
// and every failure yields an empty list: suggestions never block the flow.
func (s *Service) Suggest(ctx context.Context, partial string) ([]domain.Suggestion, error) {
	trimmed := strings.TrimSpace(partial)
	if len([]rune(trimmed)) < MinQueryLength {
		return []domain.Suggestion{}, nil
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, trimmed); err == nil && ok {
			metrics.ObserveAssistRequest("suggest", "cache_hit")
			return cached, nil
		}
	}

	if s.completions == nil {
		return []domain.Suggestion{}, nil
	}

	prompt := fmt.Sprintf(`You are helping users find people to vote for. Given the partial input %q, suggest 6 real people (famous, creators, entrepreneurs, artists, athletes, etc.) whose names or handles match.

IMPORTANT:
- Prioritize exact matches and close matches first
- If the input looks like a handle (starts with @), match handles
- Return diverse results (different fields/categories)
- Ensure handles are real Twitter/X handles (no @ symbol in response)

Return JSON array: [{name: "Full Name", handle: "twitterhandle"}]`, trimmed)

	raw, err := s.completions.GenerateJSON(ctx, prompt, suggestSchema)
	if err != nil {
		s.logger.Warn("suggestion call failed", "query", trimmed, "err", err)
		metrics.ObserveAssistRequest("suggest", "error")
		return []domain.Suggestion{}, nil
	}

	var payload []domain.Suggestion
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.logger.Warn("suggestion response unparsable", "err", err)
		metrics.ObserveAssistRequest("suggest", "error")
		return []domain.Suggestion{}, nil
	}

	suggestions := make([]domain.Suggestion, 0, MaxSuggestions)
	for _, item := range payload {
		if item.Name == "" || item.Handle == "" {
			continue
		}
		item.Handle = CleanHandle(item.Handle)
		suggestions = append(suggestions, item)
		if len(suggestions) == MaxSuggestions {
			break
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, trimmed, suggestions); err != nil {
			s.logger.Warn("suggestion cache write failed", "err", err)
		}
	}

	metrics.ObserveAssistRequest("suggest", "ok")
	return suggestions, nil
}

var _ domain.Normalizer = (*Service)(nil)
var _ domain.Suggester = (*Service)(nil)

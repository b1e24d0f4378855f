package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/inspireboard/internal/app/assist"
	"github.com/marcelojr/inspireboard/internal/app/leaderboard"
	"github.com/marcelojr/inspireboard/internal/app/nomination"
	"github.com/marcelojr/inspireboard/internal/app/sharecard"
	"github.com/marcelojr/inspireboard/internal/app/voting"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/antibot"
)

// stubPeople is an in-memory PersonRepository with create-or-increment
// semantics, shared by the store and the voting service under test.
type stubPeople struct {
	mu     sync.Mutex
	people []domain.Person
	err    error
}

func (s *stubPeople) TopByVotes(ctx context.Context, limit int) ([]domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := append([]domain.Person(nil), s.people...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubPeople) FindByHandle(ctx context.Context, handle string) (domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.people {
		if p.Handle == handle {
			return p, nil
		}
	}
	return domain.Person{}, domain.ErrNotFound
}

func (s *stubPeople) RegisterVote(ctx context.Context, handle, name, category string) (domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Person{}, s.err
	}
	for i := range s.people {
		if s.people[i].Handle == handle {
			s.people[i].VoteCount++
			return s.people[i], nil
		}
	}
	p := domain.Person{ID: domain.PersonID("id-" + handle), Handle: handle, Name: name, Category: category, VoteCount: 1}
	s.people = append(s.people, p)
	return p, nil
}

type stubTicker struct {
	mu      sync.Mutex
	entries []domain.TickerEntry
}

func (s *stubTicker) Push(ctx context.Context, entry domain.TickerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubTicker) Recent(ctx context.Context, limit int) ([]domain.TickerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > limit {
		return append([]domain.TickerEntry(nil), s.entries[:limit]...), nil
	}
	return append([]domain.TickerEntry(nil), s.entries...), nil
}

type stubCompletioner struct {
	response   []byte
	err        error
	configured bool
}

func (s *stubCompletioner) GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) ([]byte, error) {
	return s.response, s.err
}

func (s *stubCompletioner) Configured() bool { return s.configured }

type stubAvatars struct{}

func (stubAvatars) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	return nil, "", errors.New("no avatar")
}

type stubCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

func newStubCounter() *stubCounter {
	return &stubCounter{values: map[string]int64{}}
}

func (s *stubCounter) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] += delta
	return s.values[key], nil
}

func (s *stubCounter) GetAll(ctx context.Context, keys []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		out[key] = s.values[key]
	}
	return out, nil
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type apiFixture struct {
	api     *API
	mux     *http.ServeMux
	people  *stubPeople
	ticker  *stubTicker
	counter *stubCounter
	remote  *stubCompletioner
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	people := &stubPeople{}
	ticker := &stubTicker{}
	counter := newStubCounter()
	remote := &stubCompletioner{configured: true}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))

	board := leaderboard.NewStore(people, 50)
	votes := voting.NewService(people, counter, nil, ticker, realClock{}, nil, log)
	assistSvc := assist.NewService(remote, nil, log)
	manager := nomination.NewManager(antibot.NewNoop(), assistSvc, votes, board, realClock{}, nil, log)
	cards := sharecard.NewRenderer(stubAvatars{}, "inspireone.vercel.app")

	api := New(board, manager, votes, assistSvc, people, cards, log)
	mux := http.NewServeMux()
	api.Register(mux)

	return &apiFixture{api: api, mux: mux, people: people, ticker: ticker, counter: counter, remote: remote}
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "visitor-test"})
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func TestHandleHealthz_WhenRequested_ShouldReturn200OK(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "GET", "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleLeaderboard_WhenEmpty_ShouldReturnEmptyTiers(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "GET", "/api/leaderboard", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp leaderboardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.People, 0)
	assert.Len(t, resp.TopTier, 0)
}

func TestHandleLeaderboard_WhenStoreFails_ShouldReturn500(t *testing.T) {
	f := setupAPI(t)
	f.people.err = assert.AnError

	w := f.do(t, "GET", "/api/leaderboard", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp, "error")
}

func TestHandleSearch_ShouldFilterSnapshot(t *testing.T) {
	f := setupAPI(t)
	f.people.people = []domain.Person{
		{ID: "1", Name: "Taylor Swift", Handle: "taylorswift13", VoteCount: 10},
		{ID: "2", Name: "Elon Musk", Handle: "elonmusk", VoteCount: 5},
	}
	require.Equal(t, http.StatusOK, f.do(t, "GET", "/api/leaderboard", "").Code)

	w := f.do(t, "GET", "/api/leaderboard/search?q=musk", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []domain.Person `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "elonmusk", resp.Results[0].Handle)
}

func TestHandleNominate_WithFreeText_ShouldAwaitConfirmation(t *testing.T) {
	f := setupAPI(t)
	f.remote.response = []byte(`{"displayName":"Sam Altman","handle":"sama","category":"Tech","isValid":true}`)

	w := f.do(t, "POST", "/api/nominations", `{"input":"sam altman"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp pipelineResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, nomination.StateAwaitingConfirmation, resp.State)
	require.NotNil(t, resp.Candidate)
	assert.Equal(t, "sama", resp.Candidate.Handle)

	// Nothing is written until the visitor confirms.
	assert.Len(t, f.people.people, 0)
}

func TestHandleConfirm_ShouldWriteVoteAndReturnPerson(t *testing.T) {
	f := setupAPI(t)
	f.remote.response = []byte(`{"displayName":"Sam Altman","handle":"sama","category":"Tech","isValid":true}`)

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/nominations", `{"input":"sam altman"}`).Code)
	w := f.do(t, "POST", "/api/nominations/confirm", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp pipelineResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, nomination.StateSuccess, resp.State)
	require.NotNil(t, resp.Person)
	assert.Equal(t, int64(1), resp.Person.VoteCount)

	require.Len(t, f.people.people, 1)
	assert.Equal(t, "sama", f.people.people[0].Handle)
}

func TestHandleConfirm_WithoutPendingNomination_ShouldReturn409(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "POST", "/api/nominations/confirm", "")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleCancel_ShouldDiscardPendingNomination(t *testing.T) {
	f := setupAPI(t)
	f.remote.response = []byte(`{"displayName":"Sam Altman","handle":"sama","category":"Tech","isValid":true}`)

	require.Equal(t, http.StatusOK, f.do(t, "POST", "/api/nominations", `{"input":"sam altman"}`).Code)
	w := f.do(t, "POST", "/api/nominations/cancel", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusConflict, f.do(t, "POST", "/api/nominations/confirm", "").Code)
	assert.Len(t, f.people.people, 0)
}

func TestHandleVote_WithSuggestionPick_ShouldSubmitDirectly(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "POST", "/api/votes", `{"name":"Marques Brownlee","handle":"@MKBHD","category":"Tech"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp pipelineResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, nomination.StateSuccess, resp.State)
	require.NotNil(t, resp.Candidate)
	assert.Equal(t, "mkbhd", resp.Candidate.Handle)

	require.Len(t, f.people.people, 1)
	assert.Equal(t, int64(1), f.people.people[0].VoteCount)
}

func TestHandleVote_WithHoneypotFilled_ShouldReturn400(t *testing.T) {
	people := &stubPeople{}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))
	board := leaderboard.NewStore(people, 50)
	votes := voting.NewService(people, nil, nil, nil, realClock{}, nil, log)
	assistSvc := assist.NewService(&stubCompletioner{configured: true}, nil, log)

	guard := antibot.NewGuard(nil, 0, realClock{}, log)
	manager := nomination.NewManager(guard, assistSvc, votes, board, realClock{}, nil, log)
	api := New(board, manager, votes, assistSvc, people, sharecard.NewRenderer(stubAvatars{}, "site"), log)
	mux := http.NewServeMux()
	api.Register(mux)

	req := httptest.NewRequest("POST", "/api/votes", bytes.NewReader([]byte(`{"name":"Bot","handle":"bot","website":"spam"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, people.people, 0)
}

func TestHandleVote_WithInvalidPayload_ShouldReturn400(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "POST", "/api/votes", `{"handle":invalid}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRecent_ShouldReturnTickerEntries(t *testing.T) {
	f := setupAPI(t)
	f.ticker.entries = []domain.TickerEntry{
		{Name: "Sam Altman", Handle: "sama", VotedAt: time.Now()},
	}

	w := f.do(t, "GET", "/api/recent", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Entries []domain.TickerEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "sama", resp.Entries[0].Handle)
}

func TestHandleHourly_ShouldReturnCounterBuckets(t *testing.T) {
	f := setupAPI(t)
	now := time.Now().UTC()
	_, err := f.counter.Increment(context.Background(), voting.CounterKeyHour(now), 3)
	require.NoError(t, err)
	_, err = f.counter.Increment(context.Background(), voting.CounterKeyHour(now.Add(-2*time.Hour)), 1)
	require.NoError(t, err)

	w := f.do(t, "GET", "/api/hourly", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Totals []domain.HourlyTotal `json:"totals"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Totals, 2)
	assert.Equal(t, int64(1), resp.Totals[0].Total)
	assert.Equal(t, int64(3), resp.Totals[1].Total)
	assert.True(t, resp.Totals[0].Hour.Before(resp.Totals[1].Hour))
}

func TestHandleAssist_WhenUnconfigured_ShouldReturn500(t *testing.T) {
	f := setupAPI(t)
	f.remote.configured = false

	w := f.do(t, "POST", "/api/assist", `{"action":"suggest","query":"tay"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp, "error")
}

func TestHandleAssist_WithUnknownAction_ShouldReturn400(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "POST", "/api/assist", `{"action":"translate","query":"tay"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAssist_Suggest_ShouldCarryMonotonicSeq(t *testing.T) {
	f := setupAPI(t)
	f.remote.response = []byte(`[{"name":"Taylor Swift","handle":"taylorswift13"}]`)

	first := f.do(t, "POST", "/api/assist", `{"action":"suggest","query":"taylor"}`)
	second := f.do(t, "POST", "/api/assist", `{"action":"suggest","query":"taylor s"}`)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b struct {
		Suggestions []domain.Suggestion `json:"suggestions"`
		Seq         int64               `json:"seq"`
	}
	require.NoError(t, json.NewDecoder(first.Body).Decode(&a))
	require.NoError(t, json.NewDecoder(second.Body).Decode(&b))
	assert.Greater(t, b.Seq, a.Seq)
	require.Len(t, a.Suggestions, 1)
	assert.Equal(t, "taylorswift13", a.Suggestions[0].Handle)
}

func TestHandleAssist_Normalize_ShouldReturnCanonicalPerson(t *testing.T) {
	f := setupAPI(t)
	f.remote.response = []byte(`{"displayName":"Taylor Swift","handle":"@taylorswift13","category":"Music","isValid":true}`)

	w := f.do(t, "POST", "/api/assist", `{"action":"normalize","manualName":"taylor swift"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.NormalizedPerson
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Taylor Swift", resp.DisplayName)
	assert.Equal(t, "taylorswift13", resp.Handle)
}

func TestHandleShareCard_WhenPersonExists_ShouldReturnSVG(t *testing.T) {
	f := setupAPI(t)
	f.people.people = []domain.Person{
		{ID: "1", Name: "Taylor Swift", Handle: "taylorswift13", VoteCount: 42},
	}

	w := f.do(t, "GET", "/api/share/taylorswift13", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Taylor Swift")
}

func TestHandleShareCard_WhenUnknownHandle_ShouldReturn404(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "GET", "/api/share/nobody", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleVote_WhenMethodNotAllowed_ShouldReturn405(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, "GET", "/api/votes", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

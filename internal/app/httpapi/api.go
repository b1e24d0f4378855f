// Package httpapi exposes the JSON surface and translates HTTP requests
// into the nomination pipeline, the leaderboard store and the assist relay.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/marcelojr/inspireboard/internal/app/assist"
	"github.com/marcelojr/inspireboard/internal/app/leaderboard"
	"github.com/marcelojr/inspireboard/internal/app/nomination"
	"github.com/marcelojr/inspireboard/internal/app/sharecard"
	"github.com/marcelojr/inspireboard/internal/app/voting"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/antibot"
	"github.com/marcelojr/inspireboard/internal/platform/genai"
	"github.com/marcelojr/inspireboard/internal/platform/metrics"
)

// VisitorCookie carries the anonymous visitor id the frontend assigns.
const VisitorCookie = "inspire_visitor"

const defaultRecentLimit = 10

// API bundles the HTTP handlers with the services they front.
type API struct {
	board       *leaderboard.Store
	nominations *nomination.Manager
	votes       *voting.Service
	assist      *assist.Service
	people      domain.PersonRepository
	cards       *sharecard.Renderer
	logger      *slog.Logger

	suggestSeq atomic.Int64
}

func New(
	board *leaderboard.Store,
	nominations *nomination.Manager,
	votes *voting.Service,
	assistSvc *assist.Service,
	people domain.PersonRepository,
	cards *sharecard.Renderer,
	logger *slog.Logger,
) *API {
	return &API{
		board:       board,
		nominations: nominations,
		votes:       votes,
		assist:      assistSvc,
		people:      people,
		cards:       cards,
		logger:      logger,
	}
}

func (a *API) Register(mux *http.ServeMux) {
	// Routes stay centralized so tests and both servers share the table.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/leaderboard", a.handleLeaderboard)
	mux.HandleFunc("/api/leaderboard/search", a.handleSearch)
	mux.HandleFunc("/api/recent", a.handleRecent)
	mux.HandleFunc("/api/hourly", a.handleHourly)
	mux.HandleFunc("/api/nominations", a.handleNominate)
	mux.HandleFunc("/api/nominations/confirm", a.handleConfirm)
	mux.HandleFunc("/api/nominations/cancel", a.handleCancel)
	mux.HandleFunc("/api/nominations/acknowledge", a.handleAcknowledge)
	mux.HandleFunc("/api/votes", a.handleVote)
	mux.HandleFunc("/api/assist", a.handleAssist)
	mux.HandleFunc("/api/share/", a.handleShareCard)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type leaderboardResponse struct {
	People  []domain.Person `json:"people"`
	TopTier []domain.Person `json:"topTier"`
	MidTier []domain.Person `json:"midTier"`
	Stale   bool            `json:"stale,omitempty"`
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !a.board.Loaded() {
		if err := a.board.Refresh(r.Context()); err != nil {
			a.logger.Error("initial leaderboard fetch failed", "err", err)
			respondError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, leaderboardResponse{
		People:  a.board.Snapshot(),
		TopTier: a.board.TopTier(),
		MidTier: a.board.MidTier(),
		Stale:   a.board.LastError() != nil,
	})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": a.board.Search(query),
	})
}

func (a *API) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := a.votes.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("recent nominations fetch failed", "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleHourly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	totals, err := a.votes.HourlyTotals(r.Context())
	if err != nil {
		a.logger.Error("hourly totals fetch failed", "err", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

type nominateRequest struct {
	Input string `json:"input"`
	// Website is the hidden honeypot field; humans leave it empty.
	Website string `json:"website"`
}

type pipelineResponse struct {
	State     nomination.State         `json:"state"`
	Candidate *domain.NormalizedPerson `json:"candidate,omitempty"`
	Person    *domain.Person           `json:"person,omitempty"`
}

func (a *API) handleNominate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req nominateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveVoteRequest("invalid_payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	probe := a.probeFrom(r, req.Website)
	pipe := a.nominations.Pipeline(visitorKey(probe))

	state, candidate, err := pipe.Begin(r.Context(), req.Input, false, probe)
	if err != nil {
		status := statusFromError(err)
		metrics.ObserveVoteRequest(status)
		a.logger.Warn("nomination rejected", "err", err, "status", status)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pipelineResponse{State: state, Candidate: &candidate})
}

func (a *API) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	probe := a.probeFrom(r, "")
	pipe := a.nominations.Pipeline(visitorKey(probe))

	state, candidate, err := pipe.Confirm(r.Context())
	if err != nil {
		status := statusFromError(err)
		metrics.ObserveVoteRequest(status)
		a.logger.Warn("confirmation failed", "err", err, "handle", candidate.Handle, "status", status)
		respondError(w, err)
		return
	}

	metrics.ObserveVoteRequest("accepted")
	resp := pipelineResponse{State: state, Candidate: &candidate}
	if person, ok := pipe.Result(); ok {
		resp.Person = &person
	}
	respondJSON(w, http.StatusOK, resp)
	a.logger.Info("vote accepted", "handle", candidate.Handle)
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	probe := a.probeFrom(r, "")
	pipe := a.nominations.Pipeline(visitorKey(probe))

	if err := pipe.Cancel(); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pipelineResponse{State: nomination.StateIdle})
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	probe := a.probeFrom(r, "")
	state := a.nominations.Pipeline(visitorKey(probe)).Acknowledge()
	respondJSON(w, http.StatusOK, pipelineResponse{State: state})
}

type voteRequest struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Category string `json:"category"`
	Website  string `json:"website"`
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveVoteRequest("invalid_payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	probe := a.probeFrom(r, req.Website)
	pipe := a.nominations.Pipeline(visitorKey(probe))

	candidate := domain.NormalizedPerson{
		DisplayName: strings.TrimSpace(req.Name),
		Handle:      assist.CleanHandle(req.Handle),
		Category:    strings.TrimSpace(req.Category),
	}

	state, candidate, err := pipe.Vote(r.Context(), candidate, probe)
	if err != nil {
		status := statusFromError(err)
		metrics.ObserveVoteRequest(status)
		a.logger.Warn("vote rejected", "err", err, "handle", req.Handle, "status", status)
		respondError(w, err)
		return
	}

	metrics.ObserveVoteRequest("accepted")
	resp := pipelineResponse{State: state, Candidate: &candidate}
	if person, ok := pipe.Result(); ok {
		resp.Person = &person
	}
	respondJSON(w, http.StatusOK, resp)
	a.logger.Info("vote accepted", "handle", candidate.Handle)
}

type assistRequest struct {
	Action     string `json:"action"`
	Query      string `json:"query"`
	ManualName string `json:"manualName"`
}

func (a *API) handleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// The credential stays server-side; a missing one is a deployment
	// problem, not a client error.
	if !a.assist.Configured() {
		metrics.ObserveAssistRequest(req.Action, "unconfigured")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "assist backend not configured"})
		return
	}

	switch req.Action {
	case "suggest":
		suggestions, err := a.assist.Suggest(r.Context(), req.Query)
		if err != nil {
			metrics.ObserveAssistRequest(req.Action, "error")
			respondError(w, err)
			return
		}
		metrics.ObserveAssistRequest(req.Action, "ok")
		respondJSON(w, http.StatusOK, map[string]any{
			"suggestions": suggestions,
			// Monotonic per instance; clients drop answers older than
			// the last seq they rendered.
			"seq": a.suggestSeq.Add(1),
		})
	case "normalize":
		input := req.ManualName
		if input == "" {
			input = req.Query
		}
		person, err := a.assist.Normalize(r.Context(), input)
		if err != nil {
			metrics.ObserveAssistRequest(req.Action, "error")
			respondError(w, err)
			return
		}
		metrics.ObserveAssistRequest(req.Action, "ok")
		respondJSON(w, http.StatusOK, person)
	default:
		metrics.ObserveAssistRequest(req.Action, "unknown_action")
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func (a *API) handleShareCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handle := strings.TrimPrefix(r.URL.Path, "/api/share/")
	if handle == "" || strings.Contains(handle, "/") {
		http.NotFound(w, r)
		return
	}

	person, err := a.people.FindByHandle(r.Context(), handle)
	if err != nil {
		respondError(w, err)
		return
	}

	card, err := a.cards.Render(r.Context(), person)
	if err != nil {
		a.logger.Error("share card render failed", "err", err, "handle", handle)
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(card)
}

// probeFrom assembles what the bot guard inspects for this request.
func (a *API) probeFrom(r *http.Request, honeypot string) domain.VoteProbe {
	probe := domain.VoteProbe{
		Honeypot:  honeypot,
		SourceIP:  r.Header.Get("X-Forwarded-For"),
		UserAgent: r.UserAgent(),
	}
	if probe.SourceIP == "" {
		probe.SourceIP = strings.Split(r.RemoteAddr, ":")[0]
	}
	if cookie, err := r.Cookie(VisitorCookie); err == nil {
		probe.VisitorID = cookie.Value
	}
	return probe
}

// visitorKey keys the pipeline manager: the cookie when present, the
// address pair otherwise.
func visitorKey(probe domain.VoteProbe) string {
	if probe.VisitorID != "" {
		return probe.VisitorID
	}
	return probe.SourceIP + "|" + probe.UserAgent
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, antibot.ErrCooldownActive):
		status = http.StatusTooManyRequests
	case errors.Is(err, antibot.ErrHoneypotTripped):
		status = http.StatusBadRequest
	case errors.Is(err, voting.ErrInvalidNomination):
		status = http.StatusBadRequest
	case errors.Is(err, assist.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, nomination.ErrNoPendingNomination):
		status = http.StatusConflict
	case errors.Is(err, nomination.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, genai.ErrMissingCredential):
		status = http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFromError(err error) string {
	switch {
	case errors.Is(err, antibot.ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, antibot.ErrHoneypotTripped):
		return "honeypot"
	case errors.Is(err, voting.ErrInvalidNomination):
		return "invalid"
	case errors.Is(err, nomination.ErrNoPendingNomination):
		return "no_pending"
	case errors.Is(err, nomination.ErrSubmissionInFlight):
		return "in_flight"
	default:
		return "error"
	}
}

// Package web is the server-rendered presentation layer: the board, the
// confirmation step and the share page.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/marcelojr/inspireboard/internal/app/httpapi"
	"github.com/marcelojr/inspireboard/internal/app/leaderboard"
	"github.com/marcelojr/inspireboard/internal/app/nomination"
	"github.com/marcelojr/inspireboard/internal/app/voting"
	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/antibot"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// placeholders rotate through the nominate input as typing hints.
var placeholders = []string{
	"Taylor Swift",
	"@mkbhd",
	"Serena Williams",
	"@sama",
	"David Attenborough",
}

// Frontend renders the board, confirmation and share templates.
type Frontend struct {
	templates   *template.Template
	board       *leaderboard.Store
	nominations *nomination.Manager
	votes       *voting.Service
	printer     *message.Printer
}

// New loads the embedded templates and wires the page dependencies.
func New(board *leaderboard.Store, nominations *nomination.Manager, votes *voting.Service) (*Frontend, error) {
	if board == nil || nominations == nil {
		return nil, fmt.Errorf("frontend: missing board or nomination manager")
	}
	tmpl, err := template.ParseFS(templateFS,
		"templates/layout.gohtml",
		"templates/board.gohtml",
		"templates/confirm.gohtml",
		"templates/share.gohtml",
	)
	if err != nil {
		return nil, err
	}

	for _, name := range []string{"board_body", "confirm_body", "share_body", "layout"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("frontend: template %s not found", name)
		}
	}

	return &Frontend{
		templates:   tmpl,
		board:       board,
		nominations: nominations,
		votes:       votes,
		printer:     message.NewPrinter(language.English),
	}, nil
}

// Register exposes the HTML routes on the same mux as the API.
func (f *Frontend) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", f.handleBoard)
	mux.HandleFunc("/nominate", f.handleNominate)
	mux.HandleFunc("/confirm", f.handleConfirm)
	mux.HandleFunc("/cancel", f.handleCancel)
	mux.HandleFunc("/retry", f.handleRetry)
	mux.HandleFunc("/share", f.handleShare)
}

func (f *Frontend) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	f.ensureVisitor(w, r)

	data := boardPageData{
		Placeholder: placeholders[time.Now().Unix()%int64(len(placeholders))],
	}

	switch r.URL.Query().Get("notice") {
	case "success":
		data.Message = "Your vote is in!"
	case "cooldown":
		data.Message = "Easy there. Give it a few seconds before the next vote."
	case "failed":
		data.Error = "Your vote could not be saved. Please try again."
	case "cancelled":
		data.Message = "Nomination discarded."
	}

	if !f.board.Loaded() || f.board.LastError() == nil {
		if err := f.board.Refresh(ctx); err != nil && !f.board.Loaded() {
			data.Error = "The leaderboard is unavailable right now."
			data.CanRetry = true
			f.render(w, "board_body", data)
			return
		}
	}
	if f.board.LastError() != nil {
		data.Error = "Showing a stale list; the last refresh failed."
		data.CanRetry = true
	}

	data.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	if data.Query != "" {
		data.Results = f.personViews(f.board.Search(data.Query), 1)
		data.Searching = true
	}

	podium := f.board.TopTier()
	data.Podium = f.personViews(podium, 1)
	data.Others = f.personViews(f.board.MidTier(), len(podium)+1)

	if f.votes != nil {
		if entries, err := f.votes.Recent(ctx, 10); err == nil {
			for _, e := range entries {
				data.Ticker = append(data.Ticker, tickerView{
					Name:   e.Name,
					Handle: e.Handle,
					When:   formatAgo(e.VotedAt),
				})
			}
		}
		if totals, err := f.votes.HourlyTotals(ctx); err == nil {
			for _, t := range totals {
				data.Hourly = append(data.Hourly, hourView{
					Interval:     formatHour(t.Hour),
					TotalDisplay: f.displayInt(t.Total),
				})
			}
		}
	}

	f.render(w, "board_body", data)
}

func (f *Frontend) handleNominate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/?notice=failed", http.StatusSeeOther)
		return
	}

	visitorID := f.ensureVisitor(w, r)
	probe := domain.VoteProbe{
		VisitorID: visitorID,
		Honeypot:  r.PostFormValue("website"),
		SourceIP:  clientIP(r),
		UserAgent: r.UserAgent(),
	}

	input := strings.TrimSpace(r.PostFormValue("input"))
	pipe := f.nominations.Pipeline(visitorID)

	state, _, err := pipe.Begin(r.Context(), input, false, probe)
	if err != nil {
		http.Redirect(w, r, "/?notice="+noticeFromError(err), http.StatusSeeOther)
		return
	}
	if state != nomination.StateAwaitingConfirmation {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/confirm", http.StatusSeeOther)
}

func (f *Frontend) handleConfirm(w http.ResponseWriter, r *http.Request) {
	visitorID := f.ensureVisitor(w, r)
	pipe := f.nominations.Pipeline(visitorID)

	if r.Method == http.MethodGet {
		candidate, ok := pipe.Candidate()
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		f.render(w, "confirm_body", confirmPageData{
			Name:     candidate.DisplayName,
			Handle:   candidate.Handle,
			Category: candidate.Category,
		})
		return
	}

	state, candidate, err := pipe.Confirm(r.Context())
	// Either way the terminal state is consumed here; the redirect target
	// carries the outcome.
	pipe.Acknowledge()
	if err != nil || state != nomination.StateSuccess {
		http.Redirect(w, r, "/?notice="+noticeFromError(err), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/?notice=success&handle="+url.QueryEscape(candidate.Handle), http.StatusSeeOther)
}

func (f *Frontend) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	visitorID := f.ensureVisitor(w, r)
	_ = f.nominations.Pipeline(visitorID).Cancel()
	http.Redirect(w, r, "/?notice=cancelled", http.StatusSeeOther)
}

func (f *Frontend) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := f.board.Refresh(r.Context()); err != nil {
		http.Redirect(w, r, "/?notice=failed", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (f *Frontend) handleShare(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.URL.Query().Get("handle"))
	if handle == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var view personView
	for i, p := range f.board.Snapshot() {
		if p.Handle == handle {
			view = f.personView(p, i+1)
			break
		}
	}
	if view.Handle == "" {
		http.NotFound(w, r)
		return
	}

	f.render(w, "share_body", sharePageData{
		Person:  view,
		CardURL: "/api/share/" + url.PathEscape(handle),
	})
}

func (f *Frontend) render(w http.ResponseWriter, tmpl string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var content strings.Builder
	if err := f.templates.ExecuteTemplate(&content, tmpl, data); err != nil {
		http.Error(w, "failed to build the page", http.StatusInternalServerError)
		return
	}

	page := struct {
		Title   string
		Content template.HTML
	}{
		Title:   pageTitle(tmpl),
		Content: template.HTML(content.String()),
	}

	if err := f.templates.ExecuteTemplate(w, "layout", page); err != nil {
		http.Error(w, "failed to render the page", http.StatusInternalServerError)
	}
}

func pageTitle(body string) string {
	switch body {
	case "confirm_body":
		return "Confirm your nomination"
	case "share_body":
		return "Share"
	default:
		return "Who Inspires You?"
	}
}

type boardPageData struct {
	Placeholder string
	Podium      []personView
	Others      []personView
	Query       string
	Searching   bool
	Results     []personView
	Ticker      []tickerView
	Hourly      []hourView
	Message     string
	Error       string
	CanRetry    bool
}

type personView struct {
	Rank         int
	Name         string
	Handle       string
	Category     string
	VotesDisplay string
	Trend        string
	Pending      bool
}

type tickerView struct {
	Name   string
	Handle string
	When   string
}

type hourView struct {
	Interval     string
	TotalDisplay string
}

type confirmPageData struct {
	Name     string
	Handle   string
	Category string
}

type sharePageData struct {
	Person  personView
	CardURL string
}

func (f *Frontend) personViews(people []domain.Person, firstRank int) []personView {
	views := make([]personView, 0, len(people))
	for i, p := range people {
		views = append(views, f.personView(p, firstRank+i))
	}
	return views
}

func (f *Frontend) personView(p domain.Person, rank int) personView {
	return personView{
		Rank:         rank,
		Name:         p.Name,
		Handle:       p.Handle,
		Category:     p.Category,
		VotesDisplay: f.displayInt(p.VoteCount),
		Trend:        string(p.LastTrend),
		Pending:      p.Optimistic(),
	}
}

func noticeFromError(err error) string {
	switch {
	case err == nil:
		return "failed"
	case errors.Is(err, antibot.ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, antibot.ErrHoneypotTripped):
		// Bots get the same quiet landing as everyone else.
		return "success"
	default:
		return "failed"
	}
}

// ensureVisitor reads the visitor cookie, minting one on first contact.
func (f *Frontend) ensureVisitor(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(httpapi.VisitorCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     httpapi.VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func (f *Frontend) displayInt(v int64) string {
	return f.printer.Sprintf("%d", v)
}

func formatHour(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2 3pm")
}

func formatAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2")
	}
}

package domain

import (
	"strings"
	"time"
)

type (
	PersonID string
	VoteID   string
)

// Trend marks how a person moved on the board between two refreshes.
// Advisory only; the UI renders it as an icon.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// OptimisticIDPrefix marks locally synthesized ids for entries that have not
// been confirmed by the database yet.
const OptimisticIDPrefix = "temp-"

// Person is one row of the leaderboard. VoteCount is authoritative only
// right after a fetch; an optimistic entry carries a guessed count of 1
// until the next refresh supersedes it.
type Person struct {
	ID        PersonID  `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Handle    string    `gorm:"column:handle;type:text;not null;uniqueIndex" json:"handle"`
	Category  string    `gorm:"column:category;type:text" json:"category"`
	VoteCount int64     `gorm:"column:vote_count;not null;default:0" json:"voteCount"`
	LastTrend Trend     `gorm:"column:last_trend;type:text;default:'neutral'" json:"lastTrend"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Person) TableName() string { return "people" }

// Optimistic reports whether the entry was synthesized locally and is still
// waiting for the authoritative refetch.
func (p Person) Optimistic() bool {
	return strings.HasPrefix(string(p.ID), OptimisticIDPrefix)
}

// Vote is the audit record of a single accepted submission. The leaderboard
// count lives on Person; votes exist for the hourly series and the ticker.
type Vote struct {
	ID        VoteID    `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Handle    string    `gorm:"column:handle;type:text;not null;index:idx_votes_handle" json:"handle"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Category  string    `gorm:"column:category;type:text" json:"category"`
	SourceID  string    `gorm:"column:source_id;type:text" json:"-"`
	UserAgent string    `gorm:"column:user_agent;type:text" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_votes_created_at" json:"createdAt"`
}

func (Vote) TableName() string { return "votes" }

// Suggestion is an ephemeral autocomplete candidate; never persisted.
type Suggestion struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// NormalizedPerson is the canonical record derived from free-text input.
// It is folded straight into a vote submission, never stored on its own.
type NormalizedPerson struct {
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
	Category    string `json:"category"`
}

// Valid requires the two fields the board cannot render without.
func (n NormalizedPerson) Valid() bool {
	return n.DisplayName != "" && n.Handle != ""
}

// VoteProbe is what the bot guard inspects before a submission is allowed.
// VisitorID comes from the visitor cookie when present; SourceIP and
// UserAgent identify cookie-less clients.
type VoteProbe struct {
	VisitorID string
	Honeypot  string
	SourceIP  string
	UserAgent string
}

// TickerEntry is one item of the recent-nomination strip.
type TickerEntry struct {
	Name    string    `json:"name"`
	Handle  string    `json:"handle"`
	VotedAt time.Time `json:"votedAt"`
}

// HourlyTotal aggregates accepted votes per clock hour.
type HourlyTotal struct {
	Hour  time.Time `json:"hour"`
	Total int64     `json:"total"`
}

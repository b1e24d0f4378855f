package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/inspireboard/internal/domain"
	"github.com/marcelojr/inspireboard/internal/platform/ids"
)

// PersonRepository maps leaderboard rows to the people table via GORM.
type PersonRepository struct {
	db  *gorm.DB
	ids *ids.Generator
}

func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{db: db, ids: ids.DefaultGenerator()}
}

type personModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	Handle    string    `gorm:"column:handle;uniqueIndex"`
	Category  string    `gorm:"column:category"`
	VoteCount int64     `gorm:"column:vote_count"`
	LastTrend string    `gorm:"column:last_trend"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (personModel) TableName() string {
	return "people"
}

func (m personModel) toDomain() domain.Person {
	trend := domain.Trend(m.LastTrend)
	if trend == "" {
		trend = domain.TrendNeutral
	}
	return domain.Person{
		ID:        domain.PersonID(m.ID),
		Name:      m.Name,
		Handle:    m.Handle,
		Category:  m.Category,
		VoteCount: m.VoteCount,
		LastTrend: trend,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *PersonRepository) TopByVotes(ctx context.Context, limit int) ([]domain.Person, error) {
	var models []personModel
	if err := r.db.WithContext(ctx).
		Order("vote_count DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm people: top by votes: %w", err)
	}

	result := make([]domain.Person, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

func (r *PersonRepository) FindByHandle(ctx context.Context, handle string) (domain.Person, error) {
	var model personModel
	if err := r.db.WithContext(ctx).
		First(&model, "handle = ?", handle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Person{}, domain.ErrNotFound
		}
		return domain.Person{}, fmt.Errorf("gorm people: find by handle: %w", err)
	}
	return model.toDomain(), nil
}

// RegisterVote implements the create-or-increment semantics of the original
// vote procedure: first vote for a handle inserts the row with count 1,
// every later vote bumps the count in place.
func (r *PersonRepository) RegisterVote(ctx context.Context, handle, name, category string) (domain.Person, error) {
	if handle == "" {
		return domain.Person{}, fmt.Errorf("gorm people: register vote: empty handle")
	}

	now := time.Now().UTC()
	model := personModel{
		ID:        r.ids.New(),
		Name:      name,
		Handle:    handle,
		Category:  category,
		VoteCount: 1,
		LastTrend: string(domain.TrendNeutral),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "handle"}},
			DoUpdates: clause.Assignments(map[string]any{
				"vote_count": gorm.Expr("people.vote_count + 1"),
				"updated_at": now,
			}),
		}).
		Create(&model).Error; err != nil {
		return domain.Person{}, fmt.Errorf("gorm people: register vote: %w", err)
	}

	// The upsert does not report which branch ran; re-read for the stored row.
	return r.FindByHandle(ctx, handle)
}

var _ domain.PersonRepository = (*PersonRepository)(nil)

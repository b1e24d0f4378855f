package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/inspireboard/internal/domain"
)

// VoteRepository stores the audit trail. Aggregates over it are served from
// the redis counters the worker maintains, so this side only inserts.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

type voteModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Handle    string    `gorm:"column:handle;index"`
	Name      string    `gorm:"column:name"`
	Category  string    `gorm:"column:category"`
	SourceID  string    `gorm:"column:source_id"`
	UserAgent string    `gorm:"column:user_agent"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func fromDomainVote(v domain.Vote) voteModel {
	return voteModel{
		ID:        string(v.ID),
		Handle:    v.Handle,
		Name:      v.Name,
		Category:  v.Category,
		SourceID:  v.SourceID,
		UserAgent: v.UserAgent,
		CreatedAt: v.CreatedAt,
	}
}

func (r *VoteRepository) Record(ctx context.Context, vote domain.Vote) error {
	model := fromDomainVote(vote)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm votes: insert: %w", err)
	}
	return nil
}

var _ domain.VoteRepository = (*VoteRepository)(nil)

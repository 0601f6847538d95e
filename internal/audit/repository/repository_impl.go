package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/pkg/uow"
	"gorm.io/gorm"
)

// Repository is the persistence port for audit logs. There is no update or
// delete: the trail is append-only.
type Repository interface {
	Insert(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, filter ListFilter) ([]*domain.AuditLog, error)
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    snowflake.ID
	StartAt    *time.Time
	EndAt      *time.Time
	BeforeID   int64 // cursor: only rows with id < BeforeID
	Limit      int
}

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, entry *domain.AuditLog) error {
	return uow.Tx(ctx, r.db).WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, filter ListFilter) ([]*domain.AuditLog, error) {
	stmt := uow.Tx(ctx, r.db).WithContext(ctx).Model(&domain.AuditLog{})

	if filter.Action != "" {
		stmt = stmt.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		stmt = stmt.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		stmt = stmt.Where("target_id = ?", filter.TargetID)
	}
	if filter.ActorID != 0 {
		stmt = stmt.Where("actor_id = ?", filter.ActorID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at < ?", *filter.EndAt)
	}
	if filter.BeforeID > 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var entries []*domain.AuditLog
	err := stmt.Order("id DESC").Find(&entries).Error
	return entries, err
}

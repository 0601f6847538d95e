package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/subscription/domain"
	"github.com/propfolio/backend/pkg/uow"
	"gorm.io/gorm"
)

// Repository is the persistence port for subscriptions.
type Repository interface {
	FindActiveByUserID(ctx context.Context, userID snowflake.ID) (*domain.Subscription, error)
	Insert(ctx context.Context, sub *domain.Subscription) error
	EndActive(ctx context.Context, userID snowflake.ID, at time.Time) error
}

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) FindActiveByUserID(ctx context.Context, userID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := uow.Tx(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []domain.SubscriptionStatus{
			domain.SubscriptionStatusActive,
			domain.SubscriptionStatusTrialing,
		}).
		Order("start_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) Insert(ctx context.Context, sub *domain.Subscription) error {
	return uow.Tx(ctx, r.db).WithContext(ctx).Create(sub).Error
}

func (r *repo) EndActive(ctx context.Context, userID snowflake.ID, at time.Time) error {
	return uow.Tx(ctx, r.db).WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("user_id = ? AND status IN ?", userID, []domain.SubscriptionStatus{
			domain.SubscriptionStatusActive,
			domain.SubscriptionStatusTrialing,
		}).
		Updates(map[string]any{
			"status":     domain.SubscriptionStatusCanceled,
			"end_at":     at,
			"updated_at": at,
		}).Error
}

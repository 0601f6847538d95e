package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/plan/domain"
	"github.com/propfolio/backend/pkg/uow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(ctx context.Context) *gorm.DB {
	return uow.Tx(ctx, r.db).WithContext(ctx)
}

func (r *repo) FindPlanByID(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.conn(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindPlanByCode(ctx context.Context, code string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.conn(ctx).Where("code = ?", code).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	err := r.conn(ctx).Order("code ASC").Find(&plans).Error
	return plans, err
}

func (r *repo) FindPermission(ctx context.Context, planID snowflake.ID, code string) (*domain.PlanPermission, error) {
	var perm domain.PlanPermission
	err := r.conn(ctx).Where("plan_id = ? AND code = ?", planID, code).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (r *repo) ListPermissions(ctx context.Context, planID snowflake.ID) ([]*domain.PlanPermission, error) {
	var perms []*domain.PlanPermission
	err := r.conn(ctx).Where("plan_id = ?", planID).Order("code ASC").Find(&perms).Error
	return perms, err
}

func (r *repo) UpsertPermission(ctx context.Context, perm *domain.PlanPermission) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(perm).Error
}

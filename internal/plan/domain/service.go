package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type UpdatePermissionRequest struct {
	PlanID snowflake.ID `json:"plan_id"`
	Code   string       `json:"code"`
	Value  *string      `json:"value"`
}

// Service is the plan administration surface. Permission writes invalidate
// the permission cache for the affected plan.
type Service interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	ListPermissions(ctx context.Context, planID snowflake.ID) ([]*PlanPermission, error)
	UpdatePermission(ctx context.Context, actorID snowflake.ID, req UpdatePermissionRequest) (*PlanPermission, error)
}

var (
	ErrPlanNotFound  = errors.New("plan_not_found")
	ErrInvalidCode   = errors.New("invalid_permission_code")
	ErrInvalidPlanID = errors.New("invalid_plan_id")
)

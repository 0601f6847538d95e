package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Repository is the persistence port for plans and plan permissions. The
// permission cache reads through PermissionLoader; writes go through the
// admin service inside a unit of work.
type Repository interface {
	PermissionLoader
	FindPlanByID(ctx context.Context, id snowflake.ID) (*Plan, error)
	FindPlanByCode(ctx context.Context, code string) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)
	ListPermissions(ctx context.Context, planID snowflake.ID) ([]*PlanPermission, error)
	UpsertPermission(ctx context.Context, perm *PlanPermission) error
}

// PermissionLoader is the narrow read capability the cache populates from.
type PermissionLoader interface {
	FindPermission(ctx context.Context, planID snowflake.ID, code string) (*PlanPermission, error)
}

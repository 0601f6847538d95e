package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Resolver answers which plan currently governs a user. Quota handlers call
// this on every guarded request.
type Resolver interface {
	ActivePlanID(ctx context.Context, userID snowflake.ID) (snowflake.ID, error)
	ActiveSubscription(ctx context.Context, userID snowflake.ID) (*Subscription, error)
}

type SubscribeRequest struct {
	PlanCode string `json:"plan_code"`
}

// Service adds the write surface. Subscribing supersedes any currently
// active subscription in the same unit of work.
type Service interface {
	Resolver
	Subscribe(ctx context.Context, userID snowflake.ID, req SubscribeRequest) (*Subscription, error)
}

var (
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrInvalidPlanCode      = errors.New("invalid_plan_code")
)

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/clock"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	"github.com/propfolio/backend/internal/subscription/domain"
	"github.com/propfolio/backend/internal/subscription/repository"
	"github.com/propfolio/backend/pkg/uow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	UoW   *uow.Manager
	Repo  repository.Repository
	Plans plandomain.Repository
	Audit auditdomain.Recorder `optional:"true"`
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	uow   *uow.Manager
	repo  repository.Repository
	plans plandomain.Repository
	audit auditdomain.Recorder
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		uow:   p.UoW,
		repo:  p.Repo,
		plans: p.Plans,
		audit: p.Audit,
	}
}

func (s *Service) ActiveSubscription(ctx context.Context, userID snowflake.ID) (*domain.Subscription, error) {
	sub, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoActiveSubscription
	}
	return sub, nil
}

func (s *Service) ActivePlanID(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	sub, err := s.ActiveSubscription(ctx, userID)
	if err != nil {
		return 0, err
	}
	return sub.PlanID, nil
}

// Subscribe moves the user onto the named plan. Any active subscription is
// canceled in the same scope so the user ends up with exactly one.
func (s *Service) Subscribe(ctx context.Context, userID snowflake.ID, req domain.SubscribeRequest) (*domain.Subscription, error) {
	code := strings.TrimSpace(req.PlanCode)
	if code == "" {
		return nil, domain.ErrInvalidPlanCode
	}

	plan, err := s.plans.FindPlanByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}

	now := s.clock.Now()
	sub := &domain.Subscription{
		ID:        s.genID.Generate(),
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    domain.SubscriptionStatusActive,
		StartAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.EndActive(ctx, userID, now); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, sub); err != nil {
			return err
		}
		if s.audit != nil {
			return s.audit.LogCreate(ctx, userID, "subscription", sub.ID, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.String("user_id", userID.String()),
		zap.String("plan_code", plan.Code),
	)
	return sub, nil
}

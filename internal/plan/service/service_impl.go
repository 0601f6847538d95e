package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/clock"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	plancache "github.com/propfolio/backend/internal/plan/cache"
	"github.com/propfolio/backend/internal/plan/domain"
	"github.com/propfolio/backend/pkg/uow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var knownCodes = map[string]struct{}{
	domain.PermMaxProjects:          {},
	domain.PermMaxPhotosPerProject:  {},
	domain.PermMaxVideosPerProject:  {},
	domain.PermMaxAmenitiesProject:  {},
	domain.PermMaxContacts:          {},
	domain.PermMaxActiveTasks:       {},
	domain.PermMaxTransactionsMonth: {},
	domain.PermMaxAttachmentsTotal:  {},
	domain.PermTaxManagement:        {},
}

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Uow      *uow.Manager
	Repo     domain.Repository
	Cache    *plancache.PermissionCache
	AuditSvc auditdomain.Recorder
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	uow      *uow.Manager
	repo     domain.Repository
	cache    *plancache.PermissionCache
	auditSvc auditdomain.Recorder
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("plan.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		uow:      p.Uow,
		repo:     p.Repo,
		cache:    p.Cache,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	return s.repo.ListPlans(ctx)
}

func (s *Service) ListPermissions(ctx context.Context, planID snowflake.ID) ([]*domain.PlanPermission, error) {
	if planID == 0 {
		return nil, domain.ErrInvalidPlanID
	}
	return s.repo.ListPermissions(ctx, planID)
}

// UpdatePermission upserts one plan permission and invalidates the cached
// entries for the plan, so the next guarded request resolves fresh values.
func (s *Service) UpdatePermission(ctx context.Context, actorID snowflake.ID, req domain.UpdatePermissionRequest) (*domain.PlanPermission, error) {
	if req.PlanID == 0 {
		return nil, domain.ErrInvalidPlanID
	}
	code := strings.TrimSpace(req.Code)
	if _, ok := knownCodes[code]; !ok {
		return nil, domain.ErrInvalidCode
	}

	plan, err := s.repo.FindPlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	now := s.clock.Now()
	perm := &domain.PlanPermission{
		ID:        s.genID.Generate(),
		PlanID:    req.PlanID,
		Code:      code,
		Value:     req.Value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		before, err := s.repo.FindPermission(ctx, req.PlanID, code)
		if err != nil {
			return err
		}
		if err := s.repo.UpsertPermission(ctx, perm); err != nil {
			return err
		}
		if before == nil {
			return s.auditSvc.LogCreate(ctx, actorID, "plan_permission", perm.ID, perm)
		}
		perm.ID = before.ID
		perm.CreatedAt = before.CreatedAt
		return s.auditSvc.LogUpdate(ctx, actorID, "plan_permission", perm.ID, before, map[string]any{
			"value": req.Value,
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, req.PlanID)
	s.log.Info("plan permission updated",
		zap.String("plan_id", req.PlanID.String()),
		zap.String("code", code),
	)
	return perm, nil
}

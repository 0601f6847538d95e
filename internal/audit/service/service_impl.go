package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/audit/diff"
	"github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/audit/repository"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/pkg/db/pagination"
	"github.com/propfolio/backend/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    repository.Repository
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    repository.Repository
	metrics *telemetry.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) LogCreate(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, created any) error {
	_ = created
	return s.record(ctx, actorID, domain.ActionCreate, targetType, targetID, nil)
}

// LogUpdate diffs the entity snapshot against the patch. An update with no
// changed fields still records, with an empty diff.
func (s *Service) LogUpdate(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, before any, patch map[string]any) error {
	snapshot, err := diff.Snapshot(before)
	if err != nil {
		return err
	}
	return s.record(ctx, actorID, domain.ActionUpdate, targetType, targetID, diff.Compute(snapshot, patch))
}

func (s *Service) LogDelete(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, deleted any) error {
	_ = deleted
	return s.record(ctx, actorID, domain.ActionDelete, targetType, targetID, nil)
}

func (s *Service) record(ctx context.Context, actorID snowflake.ID, action domain.AuditAction, targetType string, targetID snowflake.ID, entries []diff.Entry) error {
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}
	if entries == nil {
		entries = []diff.Entry{}
	}

	encoded, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Diff:       datatypes.JSON(encoded),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", string(action)),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	s.metrics.AuditRecord(string(action))
	return nil
}

func (s *Service) List(ctx context.Context, actorID snowflake.ID, req domain.ListAuditLogRequest) (domain.ListAuditLogResponse, error) {
	if actorID == 0 {
		return domain.ListAuditLogResponse{}, domain.ErrInvalidActor
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListAuditLogResponse{}, domain.ErrInvalidTimeRange
	}

	action := strings.TrimSpace(req.Action)
	switch domain.AuditAction(action) {
	case "", domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete:
	default:
		return domain.ListAuditLogResponse{}, domain.ErrInvalidAction
	}

	limit := req.PageSize
	if limit <= 0 || limit > 250 {
		limit = 50
	}

	filter := repository.ListFilter{
		ActorID:    actorID,
		Action:     action,
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      limit + 1,
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListAuditLogResponse{}, domain.ErrInvalidPageToken
		}
		beforeID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return domain.ListAuditLogResponse{}, domain.ErrInvalidPageToken
		}
		filter.BeforeID = beforeID
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListAuditLogResponse{}, err
	}

	resp := domain.ListAuditLogResponse{}
	if len(entries) > limit {
		entries = entries[:limit]
		resp.HasMore = true
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID: entries[len(entries)-1].ID.String(),
		})
		if err != nil {
			return domain.ListAuditLogResponse{}, err
		}
		resp.NextPageToken = token
	}

	resp.AuditLogs = make([]domain.AuditLog, 0, len(entries))
	for _, e := range entries {
		resp.AuditLogs = append(resp.AuditLogs, *e)
	}
	return resp, nil
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/pkg/db/pagination"
)

// Recorder appends audit records inside the caller's unit-of-work scope, so a
// rollback of the mutation discards the record with it.
type Recorder interface {
	LogCreate(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, created any) error
	LogUpdate(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, before any, patch map[string]any) error
	LogDelete(ctx context.Context, actorID snowflake.ID, targetType string, targetID snowflake.ID, deleted any) error
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service is the read surface over the audit trail. Listing is scoped to the
// acting account; no caller sees another tenant's records.
type Service interface {
	Recorder
	List(ctx context.Context, actorID snowflake.ID, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidActor     = errors.New("invalid_actor")
)

// Package domain contains the immutable audit log model. Rows are written
// once inside the unit of work of the mutation they describe and are never
// updated or deleted. Targets are referenced by kind and id only; there is no
// foreign key back to the audited table.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// AuditLog is one committed mutation. Diff holds the ordered field diffs as
// JSON; it is empty (not null) for creates, deletes, and no-op updates.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    snowflake.ID      `gorm:"not null;index" json:"actor_id"`
	Action     AuditAction       `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"type:text;not null;index:idx_audit_target,priority:1" json:"target_type"`
	TargetID   snowflake.ID      `gorm:"not null;index:idx_audit_target,priority:2" json:"target_id"`
	Diff       datatypes.JSON    `gorm:"type:jsonb" json:"diff"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

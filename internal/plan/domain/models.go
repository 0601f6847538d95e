// Package domain contains persistence models for subscription plans and the
// per-plan permission values consulted by the quota enforcer.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Permission codes understood by the quota enforcer. Numeric codes hold an
// integer limit (absent row or null value means the feature is not included /
// unlimited respectively); boolean codes hold "true"/"false".
const (
	PermMaxProjects          = "max_projects"
	PermMaxPhotosPerProject  = "max_photos_per_project"
	PermMaxVideosPerProject  = "max_videos_per_project"
	PermMaxAmenitiesProject  = "max_amenities_per_project"
	PermMaxContacts          = "max_contacts"
	PermMaxActiveTasks       = "max_active_tasks"
	PermMaxTransactionsMonth = "max_transactions_per_month"
	PermMaxAttachmentsTotal  = "max_attachments_total"
	PermTaxManagement        = "tax_management"
)

// Plan is a subscription tier.
type Plan struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// PlanPermission maps (plan, permission code) to an optional value. A nil
// Value on a numeric code means the limit is unlimited.
type PlanPermission struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	PlanID    snowflake.ID `gorm:"not null;uniqueIndex:uk_plan_permission,priority:1" json:"plan_id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:uk_plan_permission,priority:2" json:"code"`
	Value     *string      `gorm:"type:text" json:"value"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PlanPermission) TableName() string { return "plan_permissions" }

// IntLimit returns the numeric limit. The second result is false when the
// value is nil or not numeric, which callers treat as unlimited.
func (p PlanPermission) IntLimit() (int64, bool) {
	if p.Value == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*p.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Enabled interprets the value as a boolean feature flag.
func (p PlanPermission) Enabled() bool {
	if p.Value == nil {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(*p.Value))
	if err != nil {
		return false
	}
	return b
}

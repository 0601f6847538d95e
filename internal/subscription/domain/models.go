// Package domain contains persistence models for user subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	SubscriptionStatusEnded    SubscriptionStatus = "ENDED"
)

// Subscription binds a user to a plan for a period.
type Subscription struct {
	ID        snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID       `gorm:"not null;index" json:"user_id"`
	PlanID    snowflake.ID       `gorm:"not null;index" json:"plan_id"`
	Status    SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	StartAt   time.Time          `gorm:"not null" json:"start_at"`
	EndAt     *time.Time         `gorm:"" json:"end_at,omitempty"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

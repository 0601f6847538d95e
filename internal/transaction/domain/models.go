// Package domain contains persistence models for project transactions, their
// recurring expansion, and tax definitions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/pkg/versioning"
)

type TransactionType string

const (
	TypeRevenue TransactionType = "REVENUE"
	TypeExpense TransactionType = "EXPENSE"
)

type Recurrence string

const (
	RecurrenceOneTime   Recurrence = "ONE_TIME"
	RecurrenceRecurring Recurrence = "RECURRING"
)

// Transaction is a revenue or expense definition on a project. Revenue
// transactions carry a [StartDate, EndDate) period; a nil EndDate is an
// open-ended period, treated as coincident with its start for overlap
// detection. Amounts are minor units.
type Transaction struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID    `gorm:"not null;index" json:"user_id"`
	ProjectID snowflake.ID    `gorm:"not null;index" json:"project_id"`
	Type      TransactionType `gorm:"type:text;not null" json:"type"`
	Category  string          `gorm:"type:text" json:"category"`
	Amount    int64           `gorm:"not null" json:"amount"`
	Currency  string          `gorm:"type:text;not null;default:'EUR'" json:"currency"`
	StartDate time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate   *time.Time      `gorm:"" json:"end_date,omitempty"`
	Recur     Recurrence      `gorm:"column:recurrence;type:text;not null;default:'ONE_TIME'" json:"recurrence"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) AggregateID() snowflake.ID { return t.ID }

// TransactionOccurrence is one dated instance produced by expanding a
// definition. Each occurrence is an independent aggregate with its own
// version and audit trail; expansion never mutates the parent definition.
type TransactionOccurrence struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID `gorm:"not null;index" json:"user_id"`
	TransactionID snowflake.ID `gorm:"not null;index" json:"transaction_id"`
	ProjectID     snowflake.ID `gorm:"not null;index" json:"project_id"`
	DueDate       time.Time    `gorm:"not null;index" json:"due_date"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Settled       bool         `gorm:"not null;default:false" json:"settled"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TransactionOccurrence) TableName() string { return "transaction_occurrences" }

func (o *TransactionOccurrence) AggregateID() snowflake.ID { return o.ID }

// Tax is a user-defined tax applied to transaction categories. The feature is
// plan-gated behind the tax_management flag.
type Tax struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;index" json:"user_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	RateBasisPts int64        `gorm:"not null" json:"rate_basis_pts"`
	AppliesTo    string       `gorm:"type:text" json:"applies_to"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tax) TableName() string { return "taxes" }

func (t *Tax) AggregateID() snowflake.ID { return t.ID }

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateTransactionRequest struct {
	ProjectID snowflake.ID    `json:"project_id"`
	Type      TransactionType `json:"type"`
	Category  string          `json:"category"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	StartDate time.Time       `json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	Recur     Recurrence      `json:"recurrence"`
}

// UpdateTransactionRequest is a patch: nil fields are left untouched.
type UpdateTransactionRequest struct {
	ExpectedVersion int64      `json:"expected_version"`
	Category        *string    `json:"category,omitempty"`
	Amount          *int64     `json:"amount,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	ClearEndDate    bool       `json:"clear_end_date,omitempty"`
}

func (r UpdateTransactionRequest) Patch() map[string]any {
	patch := map[string]any{}
	if r.Category != nil {
		patch["category"] = *r.Category
	}
	if r.Amount != nil {
		patch["amount"] = *r.Amount
	}
	if r.StartDate != nil {
		patch["start_date"] = *r.StartDate
	}
	if r.EndDate != nil {
		patch["end_date"] = *r.EndDate
	}
	if r.ClearEndDate {
		patch["end_date"] = nil
	}
	return patch
}

type CreateTaxRequest struct {
	Name         string `json:"name"`
	RateBasisPts int64  `json:"rate_basis_pts"`
	AppliesTo    string `json:"applies_to"`
}

// Service is the transaction module surface. Revenue periods are checked for
// overlap inside the same unit of work as the write; recurring definitions
// are expanded and their occurrences persisted in that scope too.
type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateTransactionRequest) (*Transaction, []*TransactionOccurrence, error)
	Get(ctx context.Context, userID, id snowflake.ID) (*Transaction, error)
	List(ctx context.Context, userID, projectID snowflake.ID) ([]*Transaction, error)
	Update(ctx context.Context, userID, id snowflake.ID, req UpdateTransactionRequest) (*Transaction, error)
	Delete(ctx context.Context, userID, id snowflake.ID) error
	ListOccurrences(ctx context.Context, userID, transactionID snowflake.ID) ([]*TransactionOccurrence, error)

	CreateTax(ctx context.Context, userID snowflake.ID, req CreateTaxRequest) (*Tax, error)
	ListTaxes(ctx context.Context, userID snowflake.ID) ([]*Tax, error)
	DeleteTax(ctx context.Context, userID, id snowflake.ID) error
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrPeriodOverlap  = errors.New("period_overlap")
	ErrInvalidType    = errors.New("invalid_transaction_type")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidProject = errors.New("invalid_project")
)

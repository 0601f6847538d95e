package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/transaction/domain"
	pkgrepo "github.com/propfolio/backend/pkg/repository"
	"github.com/propfolio/backend/pkg/uow"
	"gorm.io/gorm"
)

// Stores bundles the generic stores plus the revenue-period query the overlap
// checker needs.
type Stores struct {
	Transactions pkgrepo.Repository[domain.Transaction]
	Occurrences  pkgrepo.Repository[domain.TransactionOccurrence]
	Taxes        pkgrepo.Repository[domain.Tax]

	db *gorm.DB
}

func Provide(db *gorm.DB) Stores {
	return Stores{
		Transactions: pkgrepo.ProvideStore[domain.Transaction](db),
		Occurrences:  pkgrepo.ProvideStore[domain.TransactionOccurrence](db),
		Taxes:        pkgrepo.ProvideStore[domain.Tax](db),
		db:           db,
	}
}

// RevenuePeriods returns every revenue transaction for the project except
// excludeID. The overlap checker re-validates an edited transaction against
// its siblings, never against itself.
func (s Stores) RevenuePeriods(ctx context.Context, projectID, excludeID snowflake.ID) ([]*domain.Transaction, error) {
	stmt := uow.Tx(ctx, s.db).WithContext(ctx).
		Where("project_id = ? AND type = ?", projectID, domain.TypeRevenue)
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}

	var rows []*domain.Transaction
	err := stmt.Find(&rows).Error
	return rows, err
}

// DeleteOccurrences removes the expansion of a definition inside the current
// scope.
func (s Stores) DeleteOccurrences(ctx context.Context, transactionID snowflake.ID) error {
	return uow.Tx(ctx, s.db).WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&domain.TransactionOccurrence{}).Error
}

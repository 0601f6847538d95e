package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	auditrepo "github.com/propfolio/backend/internal/audit/repository"
	auditservice "github.com/propfolio/backend/internal/audit/service"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/internal/config"
	"github.com/propfolio/backend/internal/transaction/domain"
	"github.com/propfolio/backend/internal/transaction/repository"
	"github.com/propfolio/backend/pkg/uow"
	"github.com/propfolio/backend/pkg/versioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Transaction{},
		&domain.TransactionOccurrence{},
		&domain.Tax{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	auditSvc := auditservice.NewService(auditservice.Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepo.Provide(db),
	})

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Uow:   uow.NewManager(db),
		Stores: repository.Provide(db),
		Policy: config.NewStaticPolicyConfigHolder(config.PolicyConfig{
			RecurrenceHorizonMonths: 12,
			RecurringAmountPolicy:   config.RecurringAmountFull,
		}),
		AuditSvc: auditSvc,
	})
	return svc, db, node
}

func TestCreateRecurringPersistsExpansion(t *testing.T) {
	svc, db, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	txn, occurrences, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Category:  "rent",
		Amount:    1200,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		Recur:     domain.RecurrenceRecurring,
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), occurrences[0].DueDate)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), occurrences[1].DueDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), occurrences[2].DueDate)

	var persisted int64
	require.NoError(t, db.Model(&domain.TransactionOccurrence{}).
		Where("transaction_id = ?", txn.ID).Count(&persisted).Error)
	assert.Equal(t, int64(3), persisted)

	// Definition, plus one audit record per row written.
	var auditCount int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).Count(&auditCount).Error)
	assert.Equal(t, int64(4), auditCount)

	for _, occ := range occurrences {
		assert.Equal(t, int64(0), occ.Version)
		assert.False(t, occ.Settled)
	}
}

func TestCreateOverlapRejectedNothingPersists(t *testing.T) {
	svc, db, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	end1 := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	_, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    1000,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end1,
	})
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).Count(&before).Error)

	end2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, _, err = svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    900,
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end2,
	})
	require.ErrorIs(t, err, domain.ErrPeriodOverlap)

	var txnCount int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&txnCount).Error)
	assert.Equal(t, int64(1), txnCount, "rejected transaction must not persist")

	var after int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).Count(&after).Error)
	assert.Equal(t, before, after, "rejected transaction must not leave audit records")
}

func TestCreateAdjacentPeriodsAllowed(t *testing.T) {
	svc, _, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	end1 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	_, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    1000,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end1,
	})
	require.NoError(t, err)

	end2 := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	_, _, err = svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    900,
		StartDate: end1,
		EndDate:   &end2,
	})
	require.NoError(t, err, "adjacent periods sharing a boundary must not conflict")
}

func TestExpenseSkipsOverlapCheck(t *testing.T) {
	svc, _, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		_, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
			ProjectID: projectID,
			Type:      domain.TypeExpense,
			Amount:    100,
			StartDate: start,
			EndDate:   &end,
		})
		require.NoError(t, err, "expenses may overlap freely")
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	svc, _, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	txn, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeExpense,
		Amount:    100,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	newAmount := int64(200)
	_, err = svc.Update(context.Background(), userID, txn.ID, domain.UpdateTransactionRequest{
		ExpectedVersion: 0,
		Amount:          &newAmount,
	})
	require.NoError(t, err)

	// A second writer still holding version 0 must be rejected.
	stale := int64(300)
	_, err = svc.Update(context.Background(), userID, txn.ID, domain.UpdateTransactionRequest{
		ExpectedVersion: 0,
		Amount:          &stale,
	})
	require.ErrorIs(t, err, versioning.ErrVersionConflict)

	got, err := svc.Get(context.Background(), userID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Amount)
	assert.Equal(t, int64(1), got.Version)
}

type failingRecorder struct {
	auditdomain.Recorder
}

func (failingRecorder) LogUpdate(context.Context, snowflake.ID, string, snowflake.ID, any, map[string]any) error {
	return errors.New("audit store unavailable")
}

func TestUpdateRollsBackWhenAuditFails(t *testing.T) {
	svc, db, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	txn, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeExpense,
		Amount:    100,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	broken := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)),
		Uow:    uow.NewManager(db),
		Stores: repository.Provide(db),
		Policy: config.NewStaticPolicyConfigHolder(config.PolicyConfig{
			RecurrenceHorizonMonths: 12,
			RecurringAmountPolicy:   config.RecurringAmountFull,
		}),
		AuditSvc: failingRecorder{},
	})

	newAmount := int64(200)
	_, err = broken.Update(context.Background(), userID, txn.ID, domain.UpdateTransactionRequest{
		ExpectedVersion: 0,
		Amount:          &newAmount,
	})
	require.Error(t, err)

	// The versioned write happened inside the same scope as the audit
	// record, so the failure must roll both back.
	var stored domain.Transaction
	require.NoError(t, db.First(&stored, "id = ?", txn.ID).Error)
	assert.Equal(t, int64(100), stored.Amount)
	assert.Equal(t, int64(0), stored.Version)

	var updates int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("target_id = ? AND action = ?", txn.ID, auditdomain.ActionUpdate).
		Count(&updates).Error)
	assert.Equal(t, int64(0), updates)
}

func TestUpdateOverlapExcludesSelf(t *testing.T) {
	svc, _, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	txn, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    1000,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
	})
	require.NoError(t, err)

	// Shifting its own period must not collide with itself.
	newStart := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.Update(context.Background(), userID, txn.ID, domain.UpdateTransactionRequest{
		ExpectedVersion: 0,
		StartDate:       &newStart,
	})
	require.NoError(t, err)
}

func TestDeleteRemovesExpansion(t *testing.T) {
	svc, db, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	txn, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeRevenue,
		Amount:    1200,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &end,
		Recur:     domain.RecurrenceRecurring,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, txn.ID))

	var occCount int64
	require.NoError(t, db.Model(&domain.TransactionOccurrence{}).
		Where("transaction_id = ?", txn.ID).Count(&occCount).Error)
	assert.Equal(t, int64(0), occCount)

	_, err = svc.Get(context.Background(), userID, txn.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc, _, node := setupService(t)
	userID := node.Generate()
	projectID := node.Generate()

	_, _, err := svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      "WEIRD",
		Amount:    100,
		StartDate: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidType)

	_, _, err = svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeExpense,
		Amount:    0,
		StartDate: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	badEnd := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _, err = svc.Create(context.Background(), userID, domain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      domain.TypeExpense,
		Amount:    100,
		StartDate: start,
		EndDate:   &badEnd,
	})
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestCreateTaxAudited(t *testing.T) {
	svc, db, node := setupService(t)
	userID := node.Generate()

	tax, err := svc.CreateTax(context.Background(), userID, domain.CreateTaxRequest{
		Name:         "property tax",
		RateBasisPts: 250,
		AppliesTo:    "REVENUE",
	})
	require.NoError(t, err)

	var logged int64
	require.NoError(t, db.Model(&auditdomain.AuditLog{}).
		Where("target_type = ? AND target_id = ?", "tax", tax.ID).
		Count(&logged).Error)
	assert.Equal(t, int64(1), logged)
}

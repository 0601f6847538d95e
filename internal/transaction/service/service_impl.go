package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/internal/config"
	"github.com/propfolio/backend/internal/transaction/domain"
	"github.com/propfolio/backend/internal/transaction/repository"
	"github.com/propfolio/backend/pkg/db/option"
	"github.com/propfolio/backend/pkg/telemetry"
	"github.com/propfolio/backend/pkg/uow"
	"github.com/propfolio/backend/pkg/versioning"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	kindTransaction = "transaction"
	kindOccurrence  = "transaction_occurrence"
	kindTax         = "tax"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Uow      *uow.Manager
	Stores   repository.Stores
	Policy   *config.PolicyConfigHolder
	AuditSvc auditdomain.Recorder
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	uow      *uow.Manager
	stores   repository.Stores
	policy   *config.PolicyConfigHolder
	auditSvc auditdomain.Recorder
	metrics  *telemetry.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("transaction.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		uow:      p.Uow,
		stores:   p.Stores,
		policy:   p.Policy,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// ensureNoOverlap fails with ErrPeriodOverlap when any other revenue
// transaction of the project intersects [start, end). It runs inside the
// caller's unit of work so the periods it compares against include writes
// from the same scope.
func (s *Service) ensureNoOverlap(ctx context.Context, projectID snowflake.ID, start time.Time, end *time.Time, excludeID snowflake.ID) error {
	siblings, err := s.stores.RevenuePeriods(ctx, projectID, excludeID)
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if domain.PeriodsOverlap(start, end, sibling.StartDate, sibling.EndDate) {
			s.metrics.OverlapRejection()
			return domain.ErrPeriodOverlap
		}
	}
	return nil
}

func (s *Service) expansionHorizon(start time.Time) time.Time {
	months := s.policy.Get().RecurrenceHorizonMonths
	return start.AddDate(0, months, 0)
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateTransactionRequest) (*domain.Transaction, []*domain.TransactionOccurrence, error) {
	switch req.Type {
	case domain.TypeRevenue, domain.TypeExpense:
	default:
		return nil, nil, domain.ErrInvalidType
	}
	if req.Amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if req.ProjectID == 0 {
		return nil, nil, domain.ErrInvalidProject
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, nil, domain.ErrInvalidPeriod
	}
	recur := req.Recur
	if recur == "" {
		recur = domain.RecurrenceOneTime
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	now := s.clock.Now()
	txn := &domain.Transaction{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ProjectID: req.ProjectID,
		Type:      req.Type,
		Category:  strings.TrimSpace(req.Category),
		Amount:    req.Amount,
		Currency:  currency,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Recur:     recur,
		CreatedAt: now,
		UpdatedAt: now,
	}

	policy := s.policy.Get()
	specs := domain.ExpandOccurrences(
		recur,
		req.StartDate,
		req.EndDate,
		req.Amount,
		s.expansionHorizon(req.StartDate),
		policy.RecurringAmountPolicy == config.RecurringAmountSplit,
	)

	occurrences := make([]*domain.TransactionOccurrence, 0, len(specs))
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if txn.Type == domain.TypeRevenue {
			if err := s.ensureNoOverlap(ctx, txn.ProjectID, txn.StartDate, txn.EndDate, 0); err != nil {
				return err
			}
		}
		if err := s.stores.Transactions.Create(ctx, txn); err != nil {
			return err
		}
		if err := s.auditSvc.LogCreate(ctx, userID, kindTransaction, txn.ID, txn); err != nil {
			return err
		}

		for _, spec := range specs {
			occ := &domain.TransactionOccurrence{
				ID:            s.genID.Generate(),
				UserID:        userID,
				TransactionID: txn.ID,
				ProjectID:     txn.ProjectID,
				DueDate:       spec.DueDate,
				Amount:        spec.Amount,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			occurrences = append(occurrences, occ)
		}
		if err := s.stores.Occurrences.BatchCreate(ctx, occurrences); err != nil {
			return err
		}
		for _, occ := range occurrences {
			if err := s.auditSvc.LogCreate(ctx, userID, kindOccurrence, occ.ID, occ); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return txn, occurrences, nil
}

func (s *Service) Get(ctx context.Context, userID, id snowflake.ID) (*domain.Transaction, error) {
	txn, err := s.stores.Transactions.FindOne(ctx, &domain.Transaction{ID: id, UserID: userID})
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, domain.ErrNotFound
	}
	return txn, nil
}

func (s *Service) List(ctx context.Context, userID, projectID snowflake.ID) ([]*domain.Transaction, error) {
	return s.stores.Transactions.Find(ctx,
		&domain.Transaction{UserID: userID, ProjectID: projectID},
		option.WithOrder("start_date ASC"),
	)
}

func (s *Service) Update(ctx context.Context, userID, id snowflake.ID, req domain.UpdateTransactionRequest) (*domain.Transaction, error) {
	var updated *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		txn, err := s.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		before := *txn

		start := txn.StartDate
		end := txn.EndDate
		if req.StartDate != nil {
			start = *req.StartDate
		}
		if req.ClearEndDate {
			end = nil
		} else if req.EndDate != nil {
			end = req.EndDate
		}
		if end != nil && !end.After(start) {
			return domain.ErrInvalidPeriod
		}
		if req.Amount != nil && *req.Amount <= 0 {
			return domain.ErrInvalidAmount
		}

		if txn.Type == domain.TypeRevenue {
			if err := s.ensureNoOverlap(ctx, txn.ProjectID, start, end, txn.ID); err != nil {
				return err
			}
		}

		err = versioning.Apply(ctx, uow.Tx(ctx, s.db), txn, req.ExpectedVersion, func() error {
			if req.Category != nil {
				txn.Category = strings.TrimSpace(*req.Category)
			}
			if req.Amount != nil {
				txn.Amount = *req.Amount
			}
			txn.StartDate = start
			txn.EndDate = end
			txn.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil {
			if err == versioning.ErrVersionConflict {
				s.metrics.VersionConflict(kindTransaction)
			}
			return err
		}

		if err := s.auditSvc.LogUpdate(ctx, userID, kindTransaction, txn.ID, &before, req.Patch()); err != nil {
			return err
		}
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the definition and its expansion in one scope.
func (s *Service) Delete(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		txn, err := s.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.stores.DeleteOccurrences(ctx, id); err != nil {
			return err
		}
		if err := s.stores.Transactions.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindTransaction, id, txn)
	})
}

func (s *Service) ListOccurrences(ctx context.Context, userID, transactionID snowflake.ID) ([]*domain.TransactionOccurrence, error) {
	return s.stores.Occurrences.Find(ctx,
		&domain.TransactionOccurrence{UserID: userID, TransactionID: transactionID},
		option.WithOrder("due_date ASC"),
	)
}

func (s *Service) CreateTax(ctx context.Context, userID snowflake.ID, req domain.CreateTaxRequest) (*domain.Tax, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.RateBasisPts < 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	tax := &domain.Tax{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Name:         name,
		RateBasisPts: req.RateBasisPts,
		AppliesTo:    strings.TrimSpace(req.AppliesTo),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.stores.Taxes.Create(ctx, tax); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindTax, tax.ID, tax)
	})
	if err != nil {
		return nil, err
	}
	return tax, nil
}

func (s *Service) ListTaxes(ctx context.Context, userID snowflake.ID) ([]*domain.Tax, error) {
	return s.stores.Taxes.Find(ctx, &domain.Tax{UserID: userID}, option.WithOrder("name ASC"))
}

func (s *Service) DeleteTax(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		tax, err := s.stores.Taxes.FindOne(ctx, &domain.Tax{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if tax == nil {
			return domain.ErrNotFound
		}
		if err := s.stores.Taxes.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindTax, id, tax)
	})
}

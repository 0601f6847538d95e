package migration

import (
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/authorization"
	"github.com/propfolio/backend/internal/config"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	projectdomain "github.com/propfolio/backend/internal/project/domain"
	"github.com/propfolio/backend/internal/seed"
	subscriptiondomain "github.com/propfolio/backend/internal/subscription/domain"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres targets (sqlite in dev and test) fall back to the
			// model-driven schema.
			if err := conn.AutoMigrate(
				&plandomain.Plan{},
				&plandomain.PlanPermission{},
				&subscriptiondomain.Subscription{},
				&authorization.AccountMember{},
				&projectdomain.Project{},
				&projectdomain.Amenity{},
				&projectdomain.Contact{},
				&projectdomain.Task{},
				&projectdomain.Attachment{},
				&transactiondomain.Transaction{},
				&transactiondomain.TransactionOccurrence{},
				&transactiondomain.Tax{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDefaultPlans {
			return seed.EnsureDefaultPlans(conn)
		}
		return nil
	}),
)

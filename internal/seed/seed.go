// Package seed bootstraps the default subscription plans so a fresh install
// is usable without manual plan administration.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	"gorm.io/gorm"
)

type planSpec struct {
	code        string
	name        string
	permissions map[string]*string
}

func strPtr(v string) *string { return &v }

func defaultPlans() []planSpec {
	return []planSpec{
		{
			code: "starter",
			name: "Starter",
			permissions: map[string]*string{
				plandomain.PermMaxProjects:          strPtr("1"),
				plandomain.PermMaxPhotosPerProject:  strPtr("10"),
				plandomain.PermMaxVideosPerProject:  strPtr("1"),
				plandomain.PermMaxAmenitiesProject:  strPtr("5"),
				plandomain.PermMaxContacts:          strPtr("10"),
				plandomain.PermMaxActiveTasks:       strPtr("10"),
				plandomain.PermMaxTransactionsMonth: strPtr("20"),
				plandomain.PermMaxAttachmentsTotal:  strPtr("25"),
			},
		},
		{
			code: "growth",
			name: "Growth",
			permissions: map[string]*string{
				plandomain.PermMaxProjects:          strPtr("5"),
				plandomain.PermMaxPhotosPerProject:  strPtr("50"),
				plandomain.PermMaxVideosPerProject:  strPtr("5"),
				plandomain.PermMaxAmenitiesProject:  strPtr("20"),
				plandomain.PermMaxContacts:          strPtr("100"),
				plandomain.PermMaxActiveTasks:       strPtr("50"),
				plandomain.PermMaxTransactionsMonth: strPtr("200"),
				plandomain.PermMaxAttachmentsTotal:  strPtr("250"),
				plandomain.PermTaxManagement:        strPtr("true"),
			},
		},
		{
			code: "pro",
			name: "Pro",
			permissions: map[string]*string{
				// Nil values on numeric codes mean unlimited.
				plandomain.PermMaxProjects:          nil,
				plandomain.PermMaxPhotosPerProject:  nil,
				plandomain.PermMaxVideosPerProject:  nil,
				plandomain.PermMaxAmenitiesProject:  nil,
				plandomain.PermMaxContacts:          nil,
				plandomain.PermMaxActiveTasks:       nil,
				plandomain.PermMaxTransactionsMonth: nil,
				plandomain.PermMaxAttachmentsTotal:  nil,
				plandomain.PermTaxManagement:        strPtr("true"),
			},
		},
	}
}

// EnsureDefaultPlans inserts the built-in plans and their permission values.
// Existing plans and permissions are left untouched, so operator overrides
// survive restarts.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spec := range defaultPlans() {
			if err := ensurePlanTx(ctx, tx, node, spec); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, spec planSpec) error {
	var plan plandomain.Plan
	err := tx.WithContext(ctx).Where("code = ?", spec.code).First(&plan).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		plan = plandomain.Plan{
			ID:        node.Generate(),
			Code:      spec.code,
			Name:      spec.name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}

	for code, value := range spec.permissions {
		var existing plandomain.PlanPermission
		err := tx.WithContext(ctx).
			Where("plan_id = ? AND code = ?", plan.ID, code).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		perm := plandomain.PlanPermission{
			ID:        node.Generate(),
			PlanID:    plan.ID,
			Code:      code,
			Value:     value,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&perm).Error; err != nil {
			return err
		}
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/propfolio/backend/internal/clock"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	planrepo "github.com/propfolio/backend/internal/plan/repository"
	"github.com/propfolio/backend/internal/subscription/domain"
	"github.com/propfolio/backend/internal/subscription/repository"
	"github.com/propfolio/backend/pkg/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&plandomain.Plan{}, &domain.Subscription{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		UoW:   uow.NewManager(db),
		Repo:  repository.Provide(db),
		Plans: planrepo.Provide(db),
	})
	return svc, db, node, fake
}

func seedPlan(t *testing.T, db *gorm.DB, node *snowflake.Node, code string) *plandomain.Plan {
	t.Helper()
	plan := &plandomain.Plan{ID: node.Generate(), Code: code, Name: code}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func TestSubscribeActivatesPlan(t *testing.T) {
	svc, db, node, fake := setupService(t)
	plan := seedPlan(t, db, node, "starter")
	userID := node.Generate()

	sub, err := svc.Subscribe(context.Background(), userID, domain.SubscribeRequest{PlanCode: "starter"})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, fake.Now(), sub.StartAt)

	planID, err := svc.ActivePlanID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, planID)
}

func TestSubscribeSupersedesActiveSubscription(t *testing.T) {
	svc, db, node, fake := setupService(t)
	seedPlan(t, db, node, "starter")
	growth := seedPlan(t, db, node, "growth")
	userID := node.Generate()

	_, err := svc.Subscribe(context.Background(), userID, domain.SubscribeRequest{PlanCode: "starter"})
	require.NoError(t, err)

	fake.Advance(24 * time.Hour)
	_, err = svc.Subscribe(context.Background(), userID, domain.SubscribeRequest{PlanCode: "growth"})
	require.NoError(t, err)

	active, err := svc.ActiveSubscription(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, growth.ID, active.PlanID)

	var canceled int64
	require.NoError(t, db.Model(&domain.Subscription{}).
		Where("user_id = ? AND status = ?", userID, domain.SubscriptionStatusCanceled).
		Count(&canceled).Error)
	assert.Equal(t, int64(1), canceled)
}

func TestSubscribeUnknownPlanCode(t *testing.T) {
	svc, _, node, _ := setupService(t)

	_, err := svc.Subscribe(context.Background(), node.Generate(), domain.SubscribeRequest{PlanCode: "platinum"})
	require.ErrorIs(t, err, plandomain.ErrPlanNotFound)
}

func TestSubscribeEmptyPlanCode(t *testing.T) {
	svc, _, node, _ := setupService(t)

	_, err := svc.Subscribe(context.Background(), node.Generate(), domain.SubscribeRequest{PlanCode: "  "})
	require.ErrorIs(t, err, domain.ErrInvalidPlanCode)
}

func TestActivePlanIDWithoutSubscription(t *testing.T) {
	svc, _, node, _ := setupService(t)

	_, err := svc.ActivePlanID(context.Background(), node.Generate())
	require.ErrorIs(t, err, domain.ErrNoActiveSubscription)
}

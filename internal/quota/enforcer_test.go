package quota

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/propfolio/backend/internal/clock"
	plancache "github.com/propfolio/backend/internal/plan/cache"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	projectdomain "github.com/propfolio/backend/internal/project/domain"
	subscriptiondomain "github.com/propfolio/backend/internal/subscription/domain"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type resolverStub struct {
	planID snowflake.ID
	err    error
}

func (r *resolverStub) ActivePlanID(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.planID, nil
}

func (r *resolverStub) ActiveSubscription(ctx context.Context, userID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &subscriptiondomain.Subscription{PlanID: r.planID}, nil
}

type mapLoader struct {
	perms map[string]*plandomain.PlanPermission
}

func (l *mapLoader) FindPermission(ctx context.Context, planID snowflake.ID, code string) (*plandomain.PlanPermission, error) {
	return l.perms[code], nil
}

func strPtr(v string) *string { return &v }

func setupEnforcer(t *testing.T, perms map[string]*plandomain.PlanPermission) (*Enforcer, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&projectdomain.Project{},
		&projectdomain.Amenity{},
		&projectdomain.Contact{},
		&projectdomain.Task{},
		&projectdomain.Attachment{},
		&transactiondomain.Transaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cache := plancache.NewPermissionCache(&mapLoader{perms: perms}, zap.NewNop(), nil, nil)
	e := NewEnforcer(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)),
		Resolver: &resolverStub{planID: node.Generate()},
		Perms:    cache,
	})
	return e, db, node
}

func seedProjects(t *testing.T, db *gorm.DB, node *snowflake.Node, userID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&projectdomain.Project{
			ID:     node.Generate(),
			UserID: userID,
			Name:   fmt.Sprintf("project-%d", i),
		}).Error)
	}
}

func TestLimitDeniedAtCapacity(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxProjects: {Code: plandomain.PermMaxProjects, Value: strPtr("3")},
	})
	userID := node.Generate()
	seedProjects(t, db, node, userID, 3)

	err := e.Check(context.Background(), HandlerProject, userID, Context{})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	var denial *Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, int64(3), denial.Limit)
	assert.Equal(t, int64(3), denial.Usage)
}

func TestLimitAllowedBelowCapacity(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxProjects: {Code: plandomain.PermMaxProjects, Value: strPtr("3")},
	})
	userID := node.Generate()
	seedProjects(t, db, node, userID, 2)

	require.NoError(t, e.Check(context.Background(), HandlerProject, userID, Context{}))
}

func TestLimitIgnoresOtherUsersUsage(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxProjects: {Code: plandomain.PermMaxProjects, Value: strPtr("3")},
	})
	userID := node.Generate()
	other := node.Generate()
	seedProjects(t, db, node, other, 5)

	require.NoError(t, e.Check(context.Background(), HandlerProject, userID, Context{}))
}

func TestNullValueMeansUnlimited(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxProjects: {Code: plandomain.PermMaxProjects, Value: nil},
	})
	userID := node.Generate()
	seedProjects(t, db, node, userID, 50)

	require.NoError(t, e.Check(context.Background(), HandlerProject, userID, Context{}))
}

func TestMissingPermissionDeniesFeature(t *testing.T) {
	e, _, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{})
	userID := node.Generate()

	err := e.Check(context.Background(), HandlerProject, userID, Context{})
	require.ErrorIs(t, err, ErrFeatureNotIncluded)
}

func TestFlagHandler(t *testing.T) {
	e, _, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermTaxManagement: {Code: plandomain.PermTaxManagement, Value: strPtr("true")},
	})
	userID := node.Generate()

	require.NoError(t, e.Check(context.Background(), HandlerTaxFeature, userID, Context{}))
}

func TestFlagHandlerDisabled(t *testing.T) {
	e, _, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermTaxManagement: {Code: plandomain.PermTaxManagement, Value: strPtr("false")},
	})
	userID := node.Generate()

	err := e.Check(context.Background(), HandlerTaxFeature, userID, Context{})
	require.ErrorIs(t, err, ErrFeatureNotIncluded)
}

func TestMonthlyTransactionWindow(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxTransactionsMonth: {Code: plandomain.PermMaxTransactionsMonth, Value: strPtr("2")},
	})
	userID := node.Generate()
	projectID := node.Generate()

	// Two transactions starting inside the window, one the month before. All
	// rows are created "now"; the window is keyed by start_date alone.
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	inWindow := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&transactiondomain.Transaction{
			ID:        node.Generate(),
			UserID:    userID,
			ProjectID: projectID,
			Type:      transactiondomain.TypeExpense,
			Amount:    100,
			StartDate: inWindow,
			Recur:     transactiondomain.RecurrenceOneTime,
			CreatedAt: now,
		}).Error)
	}
	require.NoError(t, db.Create(&transactiondomain.Transaction{
		ID:        node.Generate(),
		UserID:    userID,
		ProjectID: projectID,
		Type:      transactiondomain.TypeExpense,
		Amount:    100,
		StartDate: inWindow.AddDate(0, -1, 0),
		Recur:     transactiondomain.RecurrenceOneTime,
		CreatedAt: now,
	}).Error)

	err := e.Check(context.Background(), HandlerMonthlyTxn, userID, Context{
		At: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// The previous month still has headroom.
	require.NoError(t, e.Check(context.Background(), HandlerMonthlyTxn, userID, Context{
		At: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	}))
}

func TestMonthlyTransactionWindowNotEscapedByDating(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxTransactionsMonth: {Code: plandomain.PermMaxTransactionsMonth, Value: strPtr("2")},
	})
	userID := node.Generate()
	projectID := node.Generate()

	// Two January-dated transactions, both inserted in March. A third
	// January-dated creation must be denied even though nothing was created
	// in January itself.
	created := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&transactiondomain.Transaction{
			ID:        node.Generate(),
			UserID:    userID,
			ProjectID: projectID,
			Type:      transactiondomain.TypeExpense,
			Amount:    100,
			StartDate: start,
			Recur:     transactiondomain.RecurrenceOneTime,
			CreatedAt: created,
		}).Error)
	}

	err := e.Check(context.Background(), HandlerMonthlyTxn, userID, Context{At: start})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	var denial *Denial
	require.ErrorAs(t, err, &denial)
	require.Equal(t, int64(2), denial.Usage)
}

func TestUnknownHandler(t *testing.T) {
	e, _, node := setupEnforcer(t, nil)

	err := e.Check(context.Background(), "no_such_handler", node.Generate(), Context{})
	require.ErrorIs(t, err, ErrUnknownHandler)
}

func TestCheckAllFirstDenialWins(t *testing.T) {
	e, db, node := setupEnforcer(t, map[string]*plandomain.PlanPermission{
		plandomain.PermMaxAttachmentsTotal: {Code: plandomain.PermMaxAttachmentsTotal, Value: strPtr("10")},
		// No photo permission: the feature gate denies first.
	})
	userID := node.Generate()
	projectID := node.Generate()
	_ = db

	err := e.CheckAll(context.Background(),
		[]string{HandlerAttachmentTotal, HandlerProjectPhoto},
		userID, Context{ProjectID: projectID})
	require.ErrorIs(t, err, ErrFeatureNotIncluded)
}

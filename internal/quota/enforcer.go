package quota

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/clock"
	plancache "github.com/propfolio/backend/internal/plan/cache"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	subscriptiondomain "github.com/propfolio/backend/internal/subscription/domain"
	"github.com/propfolio/backend/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context carries the request-scoped inputs a handler may need. ProjectID is
// set for per-project limits; At defaults to the enforcer clock.
type Context struct {
	ProjectID snowflake.ID
	At        time.Time
}

// Handler answers whether one more unit of its resource kind is allowed for
// the user. A nil return means allowed; a denial is a *Denial.
type Handler interface {
	Name() string
	Check(ctx context.Context, userID snowflake.ID, qctx Context) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Resolver subscriptiondomain.Resolver
	Perms    *plancache.PermissionCache
	Metrics  *telemetry.Metrics `optional:"true"`
}

// Enforcer owns the fixed, enumerable handler set. Handlers are selected by
// name at call sites; the set is closed at construction, no runtime
// registration.
type Enforcer struct {
	handlers map[string]Handler
	log      *zap.Logger
	metrics  *telemetry.Metrics
}

func NewEnforcer(p Params) *Enforcer {
	deps := handlerDeps{
		db:       p.DB,
		clock:    p.Clock,
		resolver: p.Resolver,
		perms:    p.Perms,
	}

	e := &Enforcer{
		handlers: make(map[string]Handler),
		log:      p.Log.Named("quota.enforcer"),
		metrics:  p.Metrics,
	}
	for _, h := range buildHandlers(deps) {
		e.handlers[h.Name()] = h
	}
	return e
}

// Check runs the named handler. The returned error is nil (allowed), a
// *Denial, or an infrastructure failure.
func (e *Enforcer) Check(ctx context.Context, name string, userID snowflake.ID, qctx Context) error {
	h, ok := e.handlers[name]
	if !ok {
		return ErrUnknownHandler
	}

	err := h.Check(ctx, userID, qctx)
	switch d := err.(type) {
	case nil:
		e.metrics.QuotaCheck(name, "allowed")
		return nil
	case *Denial:
		e.metrics.QuotaCheck(name, "denied")
		e.metrics.QuotaDenial(name, d.Kind.Error())
		e.log.Info("quota denied",
			zap.String("handler", name),
			zap.String("user_id", userID.String()),
			zap.String("reason", d.Reason),
		)
		return d
	default:
		e.metrics.QuotaCheck(name, "error")
		return err
	}
}

// CheckAll composes handlers by logical AND: the first denial wins.
func (e *Enforcer) CheckAll(ctx context.Context, names []string, userID snowflake.ID, qctx Context) error {
	for _, name := range names {
		if err := e.Check(ctx, name, userID, qctx); err != nil {
			return err
		}
	}
	return nil
}

// Handlers returns the registered handler names, for diagnostics.
func (e *Enforcer) Handlers() []string {
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	return names
}

type handlerDeps struct {
	db       *gorm.DB
	clock    clock.Clock
	resolver subscriptiondomain.Resolver
	perms    *plancache.PermissionCache
}

// permission resolves the plan permission for the user via the cache. A nil
// result means the plan carries no entry for the code.
func (d handlerDeps) permission(ctx context.Context, userID snowflake.ID, code string) (*plandomain.PlanPermission, error) {
	planID, err := d.resolver.ActivePlanID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.perms.Get(ctx, planID, code)
}

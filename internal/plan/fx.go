package plan

import (
	"context"

	"github.com/propfolio/backend/internal/plan/cache"
	"github.com/propfolio/backend/internal/plan/domain"
	"github.com/propfolio/backend/internal/plan/repository"
	"github.com/propfolio/backend/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(repo domain.Repository) domain.PermissionLoader { return repo }),
	fx.Provide(cache.NewPermissionCache),
	fx.Provide(service.NewService),
	fx.Invoke(runInvalidationListener),
)

func runInvalidationListener(lc fx.Lifecycle, c *cache.PermissionCache) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go c.Listen(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

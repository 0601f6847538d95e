package subscription

import (
	"github.com/propfolio/backend/internal/subscription/domain"
	"github.com/propfolio/backend/internal/subscription/repository"
	"github.com/propfolio/backend/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Resolver { return svc }),
)

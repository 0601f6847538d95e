package transaction

import (
	"github.com/propfolio/backend/internal/transaction/repository"
	"github.com/propfolio/backend/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

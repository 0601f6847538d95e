package project

import (
	"github.com/propfolio/backend/internal/project/repository"
	"github.com/propfolio/backend/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

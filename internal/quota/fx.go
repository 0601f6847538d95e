package quota

import "go.uber.org/fx"

var Module = fx.Module("quota.enforcer",
	fx.Provide(NewEnforcer),
)

package platform

import "go.uber.org/fx"

var Module = fx.Module("platform.module",
	fx.Provide(NewStore),
)

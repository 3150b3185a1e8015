package piece

import "go.uber.org/fx"

var Module = fx.Module("piece.module",
	fx.Provide(NewStore),
)

package license

import (
	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/platform"
	"entitlement-controlplane/services/user"

	"go.uber.org/fx"
)

var Module = fx.Module("license.module",
	fx.Provide(
		fx.Annotate(NewHTTPAuthority, fx.As(new(Authority))),
		func(s *platform.Store) PlatformStore { return s },
		func(s *user.Store) UserStore { return s },
		func(s *piece.Store) PieceStore { return s },
		NewService,
		NewReconciler,
	),
)

// TaskModule schedules the reconciliation sweep and handles its task. It
// needs the asynq server and scheduler modules.
var TaskModule = fx.Module("license.task",
	Module,
	fx.Invoke(RegisterTrialTracker),
)

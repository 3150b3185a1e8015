package main

import (
	"log"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/db"
	"entitlement-controlplane/pkg/exception"
	"entitlement-controlplane/pkg/featureflags"
	"entitlement-controlplane/pkg/gen"
	"entitlement-controlplane/pkg/hashistack/secretmanager"
	"entitlement-controlplane/pkg/health"
	"entitlement-controlplane/pkg/logger"
	"entitlement-controlplane/pkg/otelcol"
	"entitlement-controlplane/pkg/redis"
	"entitlement-controlplane/pkg/release"
	"entitlement-controlplane/pkg/server"
	"entitlement-controlplane/pkg/task"
	"entitlement-controlplane/pkg/telemetry"
	"entitlement-controlplane/services/license"
	"entitlement-controlplane/services/piece"
	"entitlement-controlplane/services/platform"
	"entitlement-controlplane/services/user"
)

func main() {
	opts := []fx.Option{
		configModule(),
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Server,
		task.Scheduler,
		featureflags.Module,
		release.Module,
		telemetry.Module,
		exception.Module,
		platform.Module,
		user.Module,
		piece.Module,
		license.TaskModule,
		server.ProvideHTTPServer,
		health.Module,
		fx.Invoke(migrate),
		fxLogger,
	}

	if secretmanager.Enabled() {
		opts = append(opts, secretmanager.Module)
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

// configModule reads from the remote provider when REMOTE_CONFIG_PROVIDER is
// set and from config.yaml plus the environment otherwise.
func configModule() fx.Option {
	if _, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		return config.RemoteModule
	}
	return config.Module
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})

func migrate(gdb *gorm.DB, cfg *config.Config) error {
	models := []any{&platform.Platform{}, &user.User{}, &piece.Piece{}}
	models = append(models, license.Models()...)
	return db.Migrate(gdb, cfg, models...)
}

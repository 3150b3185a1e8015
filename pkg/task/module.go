package task

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Server = fx.Module("asynq:server",
	fx.Provide(
		registerServerMux,
		registerAsynqServer,
		func(m *asynq.ServeMux) HandlerRegistrar { return m },
	),
	fx.Invoke(runServer),
)

func registerServerMux() *asynq.ServeMux {
	return asynq.NewServeMux()
}

func registerAsynqServer(opt asynq.RedisConnOpt) *asynq.Server {
	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency:    10,
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
			Queues: map[string]int{
				"critical": 10,
				"default":  5,
				"low":      3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.L().Error("asynq task failed", zap.String("task_type", task.Type()), zap.Error(err))
			}),
		},
	)
}

func runServer(lc fx.Lifecycle, server *asynq.Server, mux *asynq.ServeMux) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				zap.L().Error("[Asynq] Failed to start Asynq server", zap.Error(err))
				return err
			}
			zap.L().Info("[Asynq] Asynq server started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}

var Scheduler = fx.Module("asynq:scheduler",
	fx.Provide(
		registerScheduler,
		func(s *asynq.Scheduler) PeriodicRegistrar { return s },
	),
	fx.Invoke(runScheduler),
)

func registerScheduler(opt asynq.RedisConnOpt) *asynq.Scheduler {
	return asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				// Unique tasks already enqueued by another replica land here.
				zap.L().Debug("[Scheduler] periodic task not enqueued", zap.Error(err))
				return
			}
			zap.L().Info("[Scheduler] periodic task enqueued",
				zap.String("task_type", info.Type),
				zap.String("task_id", info.ID),
				zap.String("queue", info.Queue),
			)
		},
	})
}

// runScheduler starts the scheduler after every fx.Invoke registration has
// run, so periodic entries exist before the first tick.
func runScheduler(lc fx.Lifecycle, s *asynq.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(); err != nil {
				zap.L().Error("[Scheduler] Failed to start scheduler", zap.Error(err))
				return err
			}
			zap.L().Info("[Scheduler] started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Shutdown()
			return nil
		},
	})
}

// Options shared by every periodic system job: the scheduler in each
// replica fires, but Unique lets only one enqueue win per firing.
func PeriodicOptions(queue string, uniqueFor time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Unique(uniqueFor),
	}
}

package license

import (
	"context"
	"fmt"
	"time"

	"entitlement-controlplane/pkg/config"
	"entitlement-controlplane/pkg/task"
	"entitlement-controlplane/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HandleTask runs one reconciliation sweep per scheduler firing.
func (r *Reconciler) HandleTask(ctx context.Context, t *asynq.Task) error {
	zapLog := zap.L().With(zap.String("task_type", t.Type()))
	zapLog.Info("▶️ start license reconciliation")

	res, err := r.Run(ctx)
	if err != nil {
		zapLog.Error("license reconciliation aborted", zap.Error(err))
		return err
	}

	zapLog.Info("✅ license reconciliation finished",
		zap.Int64("run_id", res.RunID),
		zap.Int("skipped", res.Skipped),
		zap.Int("projected", res.Projected),
		zap.Int("downgraded", res.Downgraded),
		zap.Int("failed", res.Failed),
		zap.Strings("failed_platforms", res.FailedPlatforms()),
		zap.Duration("duration", res.Duration),
	)
	return nil
}

type TrialTrackerParams struct {
	fx.In

	Config     *config.Config
	Scheduler  task.PeriodicRegistrar
	Mux        task.HandlerRegistrar
	Reconciler *Reconciler
}

// RegisterTrialTracker binds the sweep to its task and schedules it on the
// configured cron expression. Every replica registers the entry; the unique
// option lets only one enqueue per firing through.
func RegisterTrialTracker(p TrialTrackerParams) error {
	cron := p.Config.License.TrialTrackerCron
	now := time.Now().UTC()

	next, err := task.NextFire(cron, now)
	if err != nil {
		return err
	}
	following, err := task.NextFire(cron, next)
	if err != nil {
		return err
	}

	uniqueFor := following.Sub(next) / 2
	if uniqueFor < time.Second {
		uniqueFor = time.Second
	}

	queue := p.Config.License.TrialTrackerQueue
	if queue == "" {
		queue = "default"
	}

	p.Mux.HandleFunc(taskname.LicenseTrialTracker, p.Reconciler.HandleTask)

	entryID, err := p.Scheduler.Register(cron,
		asynq.NewTask(taskname.LicenseTrialTracker, nil),
		task.PeriodicOptions(queue, uniqueFor)...,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", taskname.LicenseTrialTracker, err)
	}

	zap.L().Info("license trial tracker scheduled",
		zap.String("entry_id", entryID),
		zap.String("cron", cron),
		zap.Time("next_fire", next),
		zap.Duration("unique_for", uniqueFor),
	)
	return nil
}

package license

import (
	"context"
	"fmt"
	"time"

	"entitlement-controlplane/pkg/exception"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	OutcomeSkipped    = "skipped"
	OutcomeProjected  = "projected"
	OutcomeDowngraded = "downgraded"
	OutcomeFailed     = "failed"
)

var reconciledPlatforms = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "license_reconcile_platforms_total",
	Help: "Platforms visited by the license reconciliation sweep, by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(reconciledPlatforms)
}

// Entitlements is the part of Service the sweep drives.
type Entitlements interface {
	VerifyKeyOrReturnNull(ctx context.Context, platformID, licenseKey string) (*LicenseKey, error)
	ApplyLimits(ctx context.Context, platformID string, key *LicenseKey) error
	DowngradeToFreePlan(ctx context.Context, platformID string) error
}

type SweepResult struct {
	RunID      int64
	Skipped    int
	Projected  int
	Downgraded int
	Failed     int
	Failures   []*PerPlatformReconciliationError
	Duration   time.Duration
}

type Reconciler struct {
	platforms    PlatformStore
	entitlements Entitlements
	reporter     exception.Reporter
	node         *snowflake.Node
}

type ReconcilerParams struct {
	fx.In

	Platforms PlatformStore
	Service   *Service
	Reporter  exception.Reporter
	Node      *snowflake.Node
}

func NewReconciler(p ReconcilerParams) *Reconciler {
	return &Reconciler{
		platforms:    p.Platforms,
		entitlements: p.Service,
		reporter:     p.Reporter,
		node:         p.Node,
	}
}

// Run sweeps every platform once, projecting valid keys and downgrading
// platforms whose key no longer resolves. A failing platform is reported and
// does not stop the sweep; only failing to list platforms aborts it.
func (r *Reconciler) Run(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	res := &SweepResult{RunID: r.node.Generate().Int64()}

	platforms, err := r.platforms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}

	for _, p := range platforms {
		if !p.HasLicenseKey() {
			res.Skipped++
			reconciledPlatforms.WithLabelValues(OutcomeSkipped).Inc()
			continue
		}

		outcome, err := r.reconcile(ctx, p.ID, *p.LicenseKey)
		if err != nil {
			perr := &PerPlatformReconciliationError{PlatformID: p.ID, Err: err}
			r.reporter.Report(ctx, perr,
				zap.Int64("run_id", res.RunID),
				zap.String("platform_id", p.ID),
			)
			res.Failures = append(res.Failures, perr)
			res.Failed++
			reconciledPlatforms.WithLabelValues(OutcomeFailed).Inc()
			continue
		}

		switch outcome {
		case OutcomeProjected:
			res.Projected++
		case OutcomeDowngraded:
			res.Downgraded++
		}
		reconciledPlatforms.WithLabelValues(outcome).Inc()
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, platformID, licenseKey string) (string, error) {
	key, err := r.entitlements.VerifyKeyOrReturnNull(ctx, platformID, licenseKey)
	if err != nil {
		return "", err
	}

	if key == nil {
		if err := r.entitlements.DowngradeToFreePlan(ctx, platformID); err != nil {
			return "", err
		}
		return OutcomeDowngraded, nil
	}

	if err := r.entitlements.ApplyLimits(ctx, platformID, key); err != nil {
		return "", err
	}
	return OutcomeProjected, nil
}

// FailedPlatforms lists the ids of the platforms that failed.
func (r *SweepResult) FailedPlatforms() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.PlatformID)
	}
	return ids
}

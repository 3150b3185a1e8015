package exception

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"entitlement-controlplane/pkg/errutil"
)

var Module = fx.Module("exception", fx.Provide(NewReporter))

var reportedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "exceptions_reported_total",
	Help: "Errors handed to the exception reporter, by status.",
}, []string{"status"})

func init() {
	prometheus.MustRegister(reportedTotal)
}

// Reporter is the side channel for errors that are handled without being
// returned to a caller.
type Reporter interface {
	Report(ctx context.Context, err error, fields ...zap.Field)
}

type reporter struct{}

func NewReporter() Reporter {
	return &reporter{}
}

func (r *reporter) Report(ctx context.Context, err error, fields ...zap.Field) {
	if err == nil {
		return
	}

	status := errutil.StatusOf(err)
	reportedTotal.WithLabelValues(string(status)).Inc()

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if sc := span.SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	zap.L().Error("exception reported", append(fields, zap.String("status", string(status)), zap.Error(err))...)
}

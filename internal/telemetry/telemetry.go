// Package telemetry holds the spans and prometheus collectors of the
// cleanup pipeline.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("topoclean.pipeline")

var (
	checkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topoclean_check_total",
		Help: "Checks run by action and completeness",
	}, []string{"action", "complete"})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topoclean_check_duration_seconds",
		Help:    "Check duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"action"})

	defectsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topoclean_defects_found_total",
		Help: "Defects reported by action",
	}, []string{"action"})

	fixTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topoclean_fix_total",
		Help: "Fixes applied by action and resulting status",
	}, []string{"action", "status"})

	fixDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topoclean_fix_duration_seconds",
		Help:    "Single fix duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	}, []string{"action"})

	convergenceIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topoclean_convergence_iterations",
		Help:    "Check-and-fix iterations until an action settled",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	}, []string{"action", "converged"})
)

// StartSpan opens a pipeline span tagged with the action.
func StartSpan(ctx context.Context, name, action string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("topoclean.action", action)))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func RecordCheck(action string, d time.Duration, found int, incomplete bool) {
	complete := "true"
	if incomplete {
		complete = "false"
	}
	checkTotal.WithLabelValues(action, complete).Inc()
	checkDuration.WithLabelValues(action).Observe(d.Seconds())
	defectsFound.WithLabelValues(action).Add(float64(found))
}

func RecordFix(action, status string, d time.Duration) {
	fixTotal.WithLabelValues(action, status).Inc()
	fixDuration.WithLabelValues(action).Observe(d.Seconds())
}

func RecordConvergence(action string, iterations int, converged bool) {
	c := "false"
	if converged {
		c = "true"
	}
	convergenceIterations.WithLabelValues(action, c).Observe(float64(iterations))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("stipula.analysis")
	meter  = otel.Meter("stipula.analysis")
)

var (
	runDuration metric.Float64Histogram
	runTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runDuration, err = meter.Float64Histogram(
			"analysis_run_duration_seconds",
			metric.WithDescription("Duration of analysis tool runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"analysis_run_total",
			metric.WithDescription("Total number of analysis tool runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, mode Mode) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Gateway.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.tool", string(mode.Tool)),
			attribute.Bool("analysis.verbose", mode.Verbose),
		),
	)
}

// recordRun records one finished run. outcome is one of "ok", "failure",
// "spawn_error", "timeout" and "cancelled".
func recordRun(ctx context.Context, tool Tool, outcome string, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", string(tool)),
		attribute.String("outcome", outcome),
	)
	runDuration.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
}

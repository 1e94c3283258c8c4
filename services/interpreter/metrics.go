// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interpreter

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
	tracer = otel.Tracer("stipula.interpreter")
	meter  = otel.Meter("stipula.interpreter")
)

var (
	spawnTotal metric.Int64Counter
	exitTotal  metric.Int64Counter
	lifetime   metric.Float64Histogram
	inputTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		spawnTotal, err = meter.Int64Counter(
			"interpreter_spawn_total",
			metric.WithDescription("Interpreter launches by result"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		exitTotal, err = meter.Int64Counter(
			"interpreter_exit_total",
			metric.WithDescription("Interpreter terminations by reason"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		lifetime, err = meter.Float64Histogram(
			"interpreter_lifetime_seconds",
			metric.WithDescription("Wall time between launch and exit"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		inputTotal, err = meter.Int64Counter(
			"interpreter_input_lines_total",
			metric.WithDescription("Lines forwarded to interpreter stdin"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startSpawnSpan(ctx context.Context, sessionID string, hoInputs int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Session.Start",
		trace.WithAttributes(
			attribute.String("interpreter.session_id", sessionID),
			attribute.Int("interpreter.ho_inputs", hoInputs),
		),
	)
}

func recordSpawn(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	spawnTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// recordExit records a finished process. reason is "exited", "stopped" or
// "disconnected".
func recordExit(ctx context.Context, reason string, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("reason", reason))
	exitTotal.Add(ctx, 1, attrs)
	lifetime.Record(ctx, d.Seconds(), attrs)
}

func recordInput(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	inputTotal.Add(ctx, 1)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability defines the Prometheus metrics of the studio service.
//
// # Description
//
// Metrics cover HTTP traffic, analysis runs, interpreter connections and
// protocol errors. They are registered on the registry passed to NewMetrics
// and exposed by the /metrics route.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "stipula"

// Metrics holds the studio's Prometheus collectors.
type Metrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: route, method, status
	RequestsTotal *prometheus.CounterVec

	// RequestDuration measures HTTP handling time.
	// Labels: route, method
	RequestDuration *prometheus.HistogramVec

	// AnalysisTotal counts analyze requests by result.
	// Labels: tool, outcome (ok, failure, unavailable, error)
	AnalysisTotal *prometheus.CounterVec

	// InterpreterConnections tracks open websocket sessions.
	InterpreterConnections prometheus.Gauge

	// ProtocolErrorsTotal counts inbound frames answered with ERROR.
	// Labels: kind (malformed, unknown_type, invalid_payload, state)
	ProtocolErrorsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests rejected with 429.
	// Labels: route
	RateLimitedTotal *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewMetrics creates and registers the collectors on reg. A nil reg means
// prometheus.DefaultRegisterer. Registering twice on one registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request handling time",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
		AnalysisTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Analyze requests by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		InterpreterConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "interpreter",
				Name:      "connections",
				Help:      "Open interpreter websocket connections",
			},
		),
		ProtocolErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "interpreter",
				Name:      "protocol_errors_total",
				Help:      "Inbound frames answered with an ERROR frame",
			},
			[]string{"kind"},
		),
		RateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		reg: reg,
	}
}

// RegisterRunningInterpreters exposes fn as a gauge of live interpreter
// processes.
func (m *Metrics) RegisterRunningInterpreters(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "interpreter",
			Name:      "running",
			Help:      "Interpreter processes currently running",
		},
		func() float64 { return float64(fn()) },
	)
}

// Middleware records RequestsTotal and RequestDuration for every request.
// Unmatched routes are labelled "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

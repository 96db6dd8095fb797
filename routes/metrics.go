// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/connect"
)

type Metrics struct {
	operationCount     *prometheus.CounterVec
	failedOperation    *prometheus.CounterVec
	operationLatencyMS *prometheus.GaugeVec
	resumeProbeCount   *prometheus.CounterVec
	resumeConflicts    prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		operationCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_operation_count",
				Help: "Number of operations dispatched to a route",
			},
			[]string{"route", "operation"},
		),
		failedOperation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_failed_operation_count",
				Help: "Number of route operations that failed",
			},
			[]string{"route", "operation", "failure_reason"},
		),
		operationLatencyMS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "route_operation_latency_ms",
				Help: "Latency of the last route operation in milliseconds",
			},
			[]string{"route", "operation"},
		),
		resumeProbeCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_resume_probe_count",
				Help: "Number of resume probes by outcome",
			},
			[]string{"route", "outcome"},
		),
		resumeConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "route_resume_conflict_count",
				Help: "Number of transactions claimed by more than one route",
			},
		),
	}

	registerer.MustRegister(m.operationCount)
	registerer.MustRegister(m.failedOperation)
	registerer.MustRegister(m.operationLatencyMS)
	registerer.MustRegister(m.resumeProbeCount)
	registerer.MustRegister(m.resumeConflicts)

	return &m
}

// observe records one operation. A nil receiver is a no-op.
func (m *Metrics) observe(r connect.Route, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operationCount.WithLabelValues(r.String(), operation).Inc()
	m.operationLatencyMS.WithLabelValues(r.String(), operation).Set(float64(time.Since(start).Milliseconds()))
	if err != nil {
		m.failedOperation.WithLabelValues(r.String(), operation, failureReason(err)).Inc()
	}
}

func (m *Metrics) probe(r connect.Route, outcome string) {
	if m == nil {
		return
	}
	m.resumeProbeCount.WithLabelValues(r.String(), outcome).Inc()
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.resumeConflicts.Inc()
}

func failureReason(err error) string {
	switch connect.AsError(err).Code {
	case connect.CodeMalformedInput:
		return "malformed_input"
	case connect.CodeIntegrityMismatch:
		return "integrity_mismatch"
	case connect.CodeNotSupported:
		return "not_supported"
	case connect.CodeMissingLiveData:
		return "missing_live_data"
	case connect.CodeRouteNotEnabled:
		return "route_not_enabled"
	case connect.CodeAmbiguousRoute:
		return "ambiguous_route"
	case connect.CodeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

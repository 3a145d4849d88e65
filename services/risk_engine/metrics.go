// Copyright (C) 2025 ArcticSec (security@arcticsec.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package risk_engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// casesScoredTotal counts processed cases by profile and risk level.
	casesScoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "riskwatch_cases_scored_total",
		Help: "Total cases scored by profile and risk level",
	}, []string{"profile", "risk_level"})

	// caseFailuresTotal counts cases that failed to process.
	caseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskwatch_case_failures_total",
		Help: "Total cases that failed to process",
	})

	// pollCyclesTotal counts watch-mode poll cycles.
	pollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "riskwatch_poll_cycles_total",
		Help: "Total watch-mode poll cycles",
	})

	// caseProcessDuration tracks end-to-end case processing latency,
	// enrichment round-trips included.
	caseProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskwatch_case_process_duration_seconds",
		Help:    "Case processing duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~200s
	})

	// openCasesPending gauges unscored open cases seen in the last poll.
	openCasesPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "riskwatch_open_cases_pending",
		Help: "Unscored open cases found in the last poll cycle",
	})
)

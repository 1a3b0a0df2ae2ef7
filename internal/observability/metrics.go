/*
Copyright © 2017 the CropET authors.
This file is part of CropET.

CropET is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

CropET is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with CropET.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package observability holds the Prometheus metrics reported by
// simulation runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms and gauges for a run.
type Metrics struct {
	PairsCompleted prometheus.Counter
	PairsFailed    prometheus.Counter
	PairsRunning   prometheus.Gauge

	// Day metrics.
	DaysSimulated prometheus.Counter
	DaysSkipped   prometheus.Counter
	Irrigations   prometheus.Counter

	PairDuration *prometheus.HistogramVec // labels: crop
}

var pairBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all run metrics and registers them with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PairsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropet",
			Name:      "pairs_completed_total",
			Help:      "Total (cell, crop) pairs simulated to the end of the run window.",
		}),
		PairsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropet",
			Name:      "pairs_failed_total",
			Help:      "Total (cell, crop) pairs stopped by an error.",
		}),
		PairsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cropet",
			Name:      "pairs_running",
			Help:      "Number of pairs being simulated.",
		}),
		DaysSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropet",
			Name:      "days_simulated_total",
			Help:      "Total pair-days simulated.",
		}),
		DaysSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropet",
			Name:      "days_skipped_total",
			Help:      "Total pair-days whose water balance could not be closed.",
		}),
		Irrigations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cropet",
			Name:      "irrigations_total",
			Help:      "Total automatic irrigation events.",
		}),
		PairDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cropet",
			Name:      "pair_duration_seconds",
			Help:      "Wall time to simulate one pair.",
			Buckets:   pairBuckets,
		}, []string{"crop"}),
	}

	reg.MustRegister(
		m.PairsCompleted,
		m.PairsFailed,
		m.PairsRunning,
		m.DaysSimulated,
		m.DaysSkipped,
		m.Irrigations,
		m.PairDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PairsCompleted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cropet", Name: "pairs_completed_total"}),
		PairsFailed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cropet", Name: "pairs_failed_total"}),
		PairsRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cropet", Name: "pairs_running"}),
		DaysSimulated:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cropet", Name: "days_simulated_total"}),
		DaysSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cropet", Name: "days_skipped_total"}),
		Irrigations:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cropet", Name: "irrigations_total"}),
		PairDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "cropet", Name: "pair_duration_seconds", Buckets: pairBuckets}, []string{"crop"}),
	}
}

// PairDone records the outcome of one pair.
func (m *Metrics) PairDone(days, skipped, irrigations int, failed bool) {
	m.DaysSimulated.Add(float64(days))
	m.DaysSkipped.Add(float64(skipped))
	m.Irrigations.Add(float64(irrigations))
	if failed {
		m.PairsFailed.Inc()
	} else {
		m.PairsCompleted.Inc()
	}
}

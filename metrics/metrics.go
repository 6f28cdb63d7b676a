// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports feed ingestion counters in the Prometheus text
// format, for scraping by the node exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stockparfait/errors"

	"github.com/ksidata/ksidata/column"
	"github.com/ksidata/ksidata/feed"
)

const namespace = "ksi"

// Values of the "kind" label of failures.
const (
	KindCancelled = "cancelled"
	KindSchema    = "schema"
	KindParse     = "parse"
	KindOverride  = "override"
	KindOther     = "other"
)

// Metrics of feed runs, in their own registry.
type Metrics struct {
	Registry    *prometheus.Registry
	Runs        *prometheus.CounterVec   // {feed}
	Failures    *prometheus.CounterVec   // {feed, kind}
	Pages       *prometheus.CounterVec   // {feed}
	Rows        *prometheus.CounterVec   // {feed}
	Duration    *prometheus.HistogramVec // {feed}
	LastSuccess *prometheus.GaugeVec     // {feed}
	Codes       *prometheus.GaugeVec     // {feed, column}
}

// New creates and registers all the metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_runs_total",
			Help:      "Feed runs, successful or not.",
		}, []string{"feed"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_failures_total",
			Help:      "Failed feed runs by error kind.",
		}, []string{"feed", "kind"}),
		Pages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_pages_total",
			Help:      "Pages fetched by successful runs.",
		}, []string{"feed"}),
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_rows_total",
			Help:      "Rows produced by successful runs.",
		}, []string{"feed"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_run_duration_seconds",
			Help:      "Wall time of feed runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"feed"}),
		LastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}, []string{"feed"}),
		Codes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_categorical_codes",
			Help:      "Number of categorical codes assigned per column.",
		}, []string{"feed", "column"}),
	}
}

// FailureKind classifies a run error for the "kind" label. Fetch errors use
// the name of their kind, e.g. "status".
func FailureKind(err error) string {
	switch {
	case feed.IsCancelled(err):
		return KindCancelled
	case column.IsSchemaError(err):
		return KindSchema
	case column.IsParseError(err):
		return KindParse
	case column.IsOverrideError(err):
		return KindOverride
	}
	if fe, ok := feed.AsFetchError(err); ok {
		return fe.Kind.String()
	}
	return KindOther
}

// Observe records the outcome of a feed run.
func (m *Metrics) Observe(r feed.JobResult) {
	m.Runs.WithLabelValues(r.Name).Inc()
	m.Duration.WithLabelValues(r.Name).Observe(r.Elapsed.Seconds())
	if r.Err != nil {
		m.Failures.WithLabelValues(r.Name, FailureKind(r.Err)).Inc()
		return
	}
	m.Pages.WithLabelValues(r.Name).Add(float64(r.Result.Pages))
	m.Rows.WithLabelValues(r.Name).Add(float64(len(r.Result.Rows)))
	m.LastSuccess.WithLabelValues(r.Name).SetToCurrentTime()
	for _, name := range r.Result.Columns {
		col := r.Result.Column(name)
		if col == nil || col.Declared() != column.String || col.Codebook().Len() == 0 {
			continue
		}
		m.Codes.WithLabelValues(r.Name, name).Set(float64(col.Codebook().Len()))
	}
}

// WriteFile atomically writes all the metrics to a file in the text format.
func (m *Metrics) WriteFile(fileName string) error {
	if err := prometheus.WriteToTextfile(fileName, m.Registry); err != nil {
		return errors.Annotate(err, "failed to write metrics to '%s'", fileName)
	}
	return nil
}

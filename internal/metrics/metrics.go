// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics holds the process-wide Prometheus registry for the
// ingestion and watch subsystems.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ingestionMetrics struct {
	once sync.Once

	filesReconciled prometheus.Counter
	filesSkipped    prometheus.Counter
	symbolsIndexed  prometheus.Counter
	referencesIndexed prometheus.Counter
	callsIndexed    prometheus.Counter
	parseErrors     prometheus.Counter
	filesystemErrors prometheus.Counter

	reconcileDuration prometheus.Histogram
	resolveSweepDuration prometheus.Histogram
}

type watchMetrics struct {
	once sync.Once

	eventsObserved   prometheus.Counter
	debounceFires    prometheus.Counter
	watchErrors      prometheus.Counter
	drainBatchSize   prometheus.Histogram
}

var (
	Ingestion = &ingestionMetrics{}
	Watch     = &watchMetrics{}
)

var buckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

func (m *ingestionMetrics) init() {
	m.once.Do(func() {
		m.filesReconciled = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_files_reconciled_total", Help: "Files reconciled (content changed, facts re-extracted)"})
		m.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_files_skipped_total", Help: "Files skipped because their content hash was unchanged"})
		m.symbolsIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_symbols_indexed_total", Help: "Symbol nodes inserted"})
		m.referencesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_references_indexed_total", Help: "Reference nodes inserted"})
		m.callsIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_calls_indexed_total", Help: "Call nodes inserted"})
		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_parse_errors_total", Help: "Files whose extraction hit a Parse error"})
		m.filesystemErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_ingest_filesystem_errors_total", Help: "Files that could not be read during reconcile"})

		m.reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "magellan_ingest_reconcile_seconds", Help: "Duration of a single file reconcile", Buckets: buckets})
		m.resolveSweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "magellan_ingest_resolve_sweep_seconds", Help: "Duration of the cross-file resolution sweep", Buckets: buckets})

		prometheus.MustRegister(
			m.filesReconciled, m.filesSkipped, m.symbolsIndexed, m.referencesIndexed, m.callsIndexed,
			m.parseErrors, m.filesystemErrors, m.reconcileDuration, m.resolveSweepDuration,
		)
	})
}

func (m *ingestionMetrics) ObserveReconcile(d time.Duration, skipped bool, symbols, references, calls int) {
	m.init()
	if skipped {
		m.filesSkipped.Inc()
	} else {
		m.filesReconciled.Inc()
	}
	m.symbolsIndexed.Add(float64(symbols))
	m.referencesIndexed.Add(float64(references))
	m.callsIndexed.Add(float64(calls))
	m.reconcileDuration.Observe(d.Seconds())
}

func (m *ingestionMetrics) IncParseError() {
	m.init()
	m.parseErrors.Inc()
}

func (m *ingestionMetrics) IncFilesystemError() {
	m.init()
	m.filesystemErrors.Inc()
}

func (m *ingestionMetrics) ObserveResolveSweep(d time.Duration) {
	m.init()
	m.resolveSweepDuration.Observe(d.Seconds())
}

func (m *watchMetrics) init() {
	m.once.Do(func() {
		m.eventsObserved = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_watch_events_total", Help: "Filesystem events observed by the watcher"})
		m.debounceFires = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_watch_debounce_fires_total", Help: "Times the debounce timer fired and drained dirty paths"})
		m.watchErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "magellan_watch_errors_total", Help: "Errors reported by the underlying filesystem watcher"})
		m.drainBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "magellan_watch_drain_batch_size", Help: "Number of paths reconciled per debounce drain", Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250}})

		prometheus.MustRegister(m.eventsObserved, m.debounceFires, m.watchErrors, m.drainBatchSize)
	})
}

func (m *watchMetrics) IncEvent() {
	m.init()
	m.eventsObserved.Inc()
}

func (m *watchMetrics) IncError() {
	m.init()
	m.watchErrors.Inc()
}

func (m *watchMetrics) ObserveDrain(batchSize int) {
	m.init()
	m.debounceFires.Inc()
	m.drainBatchSize.Observe(float64(batchSize))
}

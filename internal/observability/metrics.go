package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// leak-detection pipeline.
type Metrics struct {
	ReadingsLoaded prometheus.Counter
	RowsDropped    prometheus.Counter
	LoadFailures   prometheus.Counter

	// Dataset gauges reflect the most recent annotated dataset.
	DatasetSize    prometheus.Gauge
	AnomalyCount   prometheus.Gauge
	BaselineGroups prometheus.Gauge
	LeakAlertState prometheus.Gauge

	DatasetRefreshes *prometheus.CounterVec // labels: result={refreshed,unchanged,error}
	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
	AlertsPublished  prometheus.Counter

	LoadDuration     prometheus.Histogram
	AnnotateDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "readings_loaded_total",
			Help:      "Total readings successfully parsed from the data source.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "rows_dropped_total",
			Help:      "Total rows dropped for unparsable timestamps.",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "load_failures_total",
			Help:      "Total fatal data source failures.",
		}),
		DatasetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaklocker",
			Name:      "dataset_size",
			Help:      "Readings in the current annotated dataset.",
		}),
		AnomalyCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaklocker",
			Name:      "anomaly_count",
			Help:      "Flagged readings in the current annotated dataset.",
		}),
		BaselineGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaklocker",
			Name:      "baseline_groups",
			Help:      "Distinct (suburb, hour) groups in the current dataset.",
		}),
		LeakAlertState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leaklocker",
			Name:      "leak_alert_state",
			Help:      "1 when the current dataset contains at least one flagged reading.",
		}),
		DatasetRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "dataset_refreshes_total",
			Help:      "Refresh cycles by result.",
		}, []string{"result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "loader_cache_total",
			Help:      "Parsed-result cache lookups by result.",
		}, []string{"result"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leaklocker",
			Name:      "alerts_published_total",
			Help:      "Leak alerts published to the sink topic.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaklocker",
			Name:      "load_duration_seconds",
			Help:      "Duration of a source load and parse pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		AnnotateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leaklocker",
			Name:      "annotate_duration_seconds",
			Help:      "Duration of the enrichment, baseline and flagging pass.",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}

	prometheus.MustRegister(
		m.ReadingsLoaded,
		m.RowsDropped,
		m.LoadFailures,
		m.DatasetSize,
		m.AnomalyCount,
		m.BaselineGroups,
		m.LeakAlertState,
		m.DatasetRefreshes,
		m.CacheLookups,
		m.AlertsPublished,
		m.LoadDuration,
		m.AnnotateDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsLoaded:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "leaklocker", Name: "readings_loaded_total"}),
		RowsDropped:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "leaklocker", Name: "rows_dropped_total"}),
		LoadFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "leaklocker", Name: "load_failures_total"}),
		DatasetSize:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leaklocker", Name: "dataset_size"}),
		AnomalyCount:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leaklocker", Name: "anomaly_count"}),
		BaselineGroups:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leaklocker", Name: "baseline_groups"}),
		LeakAlertState:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "leaklocker", Name: "leak_alert_state"}),
		DatasetRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "leaklocker", Name: "dataset_refreshes_total"}, []string{"result"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "leaklocker", Name: "loader_cache_total"}, []string{"result"}),
		AlertsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "leaklocker", Name: "alerts_published_total"}),
		LoadDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "leaklocker", Name: "load_duration_seconds"}),
		AnnotateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "leaklocker", Name: "annotate_duration_seconds"}),
	}
}

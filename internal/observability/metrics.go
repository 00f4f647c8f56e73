package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ncov"

// Chart label values.
const (
	ChartTimeSeries = "timeseries"
	ChartChoropleth = "choropleth"
)

// Metrics holds the Prometheus collectors for the fetch and render pipeline.
type Metrics struct {
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram

	HistoryRecords  prometheus.Gauge
	RegionsReported prometheus.Gauge
	ShapesDrawn     *prometheus.CounterVec // labels: status={reported,unreported,skipped}

	ChartsRendered *prometheus.CounterVec // labels: chart={timeseries,choropleth}
	RenderErrors   *prometheus.CounterVec // labels: chart={timeseries,choropleth}

	RecordsPublished prometheus.Counter
	PipelineRunning  prometheus.Gauge
	CycleDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Feed requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HistoryRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Days in the most recently extracted national series.",
		}),
		RegionsReported: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_reported",
			Help:      "Regions in the most recently extracted region list.",
		}),
		ShapesDrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shapes_drawn_total",
			Help:      "Province shapes processed by the choropleth, by status.",
		}, []string{"status"}),
		ChartsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      "Images written, by chart.",
		}, []string{"chart"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Failed renders, by chart.",
		}, []string{"chart"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records written to the Kafka topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a cycle is in progress, 0 otherwise.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full fetch and render cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchRequests,
		m.FetchDuration,
		m.HistoryRecords,
		m.RegionsReported,
		m.ShapesDrawn,
		m.ChartsRendered,
		m.RenderErrors,
		m.RecordsPublished,
		m.PipelineRunning,
		m.CycleDuration,
	}
}

package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 应用的Prometheus指标；实现ml.Recorder
type Metrics struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	trainingDuration  prometheus.Histogram
	trainingRows      prometheus.Gauge
	datasetRows       prometheus.Gauge
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewMetrics 每个实例使用独立的registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monsterlab_predictions_total",
			Help: "Predictions served, by predicted rarity.",
		}, []string{"label"}),
		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monsterlab_prediction_seconds",
			Help:    "Time spent answering a prediction.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monsterlab_prediction_cache_lookups_total",
			Help: "Prediction cache lookups, by result.",
		}, []string{"result"}),
		trainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monsterlab_training_seconds",
			Help:    "Time spent fitting the classifier.",
			Buckets: prometheus.ExponentialBuckets(0.01, 3, 8),
		}),
		trainingRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monsterlab_training_rows",
			Help: "Rows used by the most recent training run.",
		}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monsterlab_dataset_rows",
			Help: "Monsters in the store at the last count.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monsterlab_http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "monsterlab_http_request_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.predictions, m.predictionLatency, m.cacheLookups,
		m.trainingDuration, m.trainingRows, m.datasetRows,
		m.requests, m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(label string, elapsed time.Duration, cached bool) {
	m.predictions.WithLabelValues(label).Inc()
	m.predictionLatency.Observe(elapsed.Seconds())
	if cached {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) ObserveTraining(elapsed time.Duration, rows int) {
	m.trainingDuration.Observe(elapsed.Seconds())
	m.trainingRows.Set(float64(rows))
}

func (m *Metrics) SetDatasetRows(n int) {
	m.datasetRows.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 暴露/metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени занял запрос (включая БД)
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Errors: отказы доставки по каждому sink
	SinkErrors *prometheus.CounterVec

	// События, отброшенные валидацией (MalformedEvent)
	DroppedEvents *prometheus.CounterVec

	// Saturation: заполненность очереди каждого sink (backpressure)
	SinkQueueFill *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userhub_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"method", "route"}),

		SinkErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_sink_errors_total",
			Help: "Total number of failed deliveries per sink.",
		}, []string{"sink"}),

		DroppedEvents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "userhub_events_dropped_total",
			Help: "Events rejected by validation or shed under backpressure.",
		}, []string{"reason"}), // reason: malformed, overflow, closed

		SinkQueueFill: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "userhub_sink_queue_utilization",
			Help: "Current number of events queued per sink.",
		}, []string{"sink"}),
	}
}

// Package metrics exposes Prometheus metrics for the analysis pipeline.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner and backtester.
type Metrics struct {
	CandlesTotal    prometheus.Counter
	FeedReconnects  prometheus.Counter
	DroppedCandles  prometheus.Counter
	ComputeDur      prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec // labels: strategy
	PhaseState      prometheus.Gauge       // -2=bear strong .. 2=bull strong
	RedisPublishDur prometheus.Histogram
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendlab_candles_total",
			Help: "Total candles consumed by the pipeline",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendlab_feed_reconnects_total",
			Help: "Total websocket feed reconnection attempts",
		}),
		DroppedCandles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trendlab_dropped_candles_total",
			Help: "Candles dropped due to full buffers",
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendlab_compute_duration_seconds",
			Help:    "Duration of one indicator+phase+signal recompute",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trendlab_signals_total",
			Help: "Signals emitted per strategy",
		}, []string{"strategy"}),
		PhaseState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trendlab_phase_state",
			Help: "Current phase: -2 bear strong, -1 bear warning, 0 consolidation, 1 bull warning, 2 bull strong",
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trendlab_redis_publish_duration_seconds",
			Help:    "Duration of redis signal publishes",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	prometheus.MustRegister(
		m.CandlesTotal, m.FeedReconnects, m.DroppedCandles, m.ComputeDur,
		m.SignalsTotal, m.PhaseState, m.RedisPublishDur,
	)
	return m
}

// ObserveCompute records one recompute duration.
func (m *Metrics) ObserveCompute(start time.Time) {
	m.ComputeDur.Observe(time.Since(start).Seconds())
}

// Serve starts the /metrics HTTP endpoint. Blocks; run in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("[metrics] serving on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[metrics] server stopped: %v", err)
	}
}

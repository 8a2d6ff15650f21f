package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 是查询接口的 Prometheus 指标。每个 Handler 持有独立的 Registry，
// 便于在同一进程（测试）中创建多个 Handler。
type Metrics struct {
	registry *prometheus.Registry

	queries  *prometheus.CounterVec
	duration prometheus.Histogram
	relays   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relaykit_queries_total",
				Help: "Relay queries handled, by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relaykit_query_duration_seconds",
				Help:    "Time spent running a relay query",
				Buckets: prometheus.DefBuckets,
			},
		),
		relays: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relaykit_snapshot_relays",
				Help: "Relays in the loaded snapshot",
			},
		),
	}
	m.registry.MustRegister(m.queries, m.duration, m.relays)
	return m
}

// Registry 返回指标注册表，供 promhttp 暴露。
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observe(result string, start time.Time) {
	m.queries.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) setSnapshotSize(n int) {
	m.relays.Set(float64(n))
}

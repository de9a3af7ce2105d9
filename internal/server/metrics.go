package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "gitlanes"

type metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	reloads        *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	layoutCommits  prometheus.Gauge
	layoutWidth    prometheus.Gauge
	clients        prometheus.Gauge
	dropped        prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "status"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reloads_total",
			Help:      "Repository reloads by result",
		}, []string{"result"}),
		reloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reload_duration_seconds",
			Help:      "Time spent reloading and laying out the repository",
			Buckets:   prometheus.DefBuckets,
		}),
		layoutCommits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "layout_commits",
			Help:      "Rows in the current layout",
		}),
		layoutWidth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "layout_columns",
			Help:      "Columns in the current layout",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_dropped_total",
			Help:      "Messages dropped because a buffer was full",
		}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.reloads,
		m.reloadDuration,
		m.layoutCommits,
		m.layoutWidth,
		m.clients,
		m.dropped,
		collectors.NewGoCollector(),
	)
	return m
}

// Package metrics exposes Prometheus collectors for the watchlist service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors on their own registry
type Metrics struct {
	registry *prometheus.Registry

	syncTotal       *prometheus.CounterVec
	records         *prometheus.GaugeVec
	requestDuration *prometheus.HistogramVec
	backupsTotal    *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gowatch",
			Name:      "sync_total",
			Help:      "Remote sync operations by direction and result.",
		}, []string{"direction", "result"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gowatch",
			Name:      "records",
			Help:      "Records in the store by kind.",
		}, []string{"kind"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gowatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		backupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gowatch",
			Name:      "backups_total",
			Help:      "Scheduled backups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.syncTotal,
		m.records,
		m.requestDuration,
		m.backupsTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSync counts one sync attempt
func (m *Metrics) ObserveSync(direction string, err error) {
	m.syncTotal.WithLabelValues(direction, result(err)).Inc()
}

// ObserveBackup counts one backup run
func (m *Metrics) ObserveBackup(err error) {
	m.backupsTotal.WithLabelValues(result(err)).Inc()
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// SetRecordCounts publishes the per-kind record counts
func (m *Metrics) SetRecordCounts(records []models.Record) {
	counts := make(map[models.Kind]int, len(models.Kinds))
	for i := range records {
		counts[records[i].Kind]++
	}
	for _, kind := range models.Kinds {
		m.records.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}
}

// SyncCounter returns the sync counter vector
func (m *Metrics) SyncCounter() *prometheus.CounterVec {
	return m.syncTotal
}

// BackupCounter returns the backup counter vector
func (m *Metrics) BackupCounter() *prometheus.CounterVec {
	return m.backupsTotal
}

// RecordGauge returns the per-kind record gauge vector
func (m *Metrics) RecordGauge() *prometheus.GaugeVec {
	return m.records
}

// Registry returns the underlying registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

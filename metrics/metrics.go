// Package metrics provides Prometheus metrics for the service dashboard.
package metrics

import (
	"net/http"
	"time"

	"service-dashboard/icons"
	"service-dashboard/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registry for all dashboard metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// DashboardMetrics holds all Prometheus metrics of the dashboard.
type DashboardMetrics struct {
	IconsInjected *prometheus.CounterVec // labels: source, result
	ServiceUp     *prometheus.GaugeVec   // labels: service, category
	CheckDuration prometheus.Histogram
	LastSweep     prometheus.Gauge
	Rebuilds      prometheus.Counter
}

// InitMetrics registers the dashboard metrics on reg.
func InitMetrics(reg prometheus.Registerer) *DashboardMetrics {
	return &DashboardMetrics{
		IconsInjected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_icons_injected_total",
			Help: "Icons injected into service elements by outcome",
		}, []string{"source", "result"}),
		ServiceUp: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_service_up",
			Help: "1 if the last check of the service succeeded, 0 otherwise",
		}, []string{"service", "category"}),
		CheckDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_status_sweep_duration_seconds",
			Help:    "Time taken to check every service once",
			Buckets: prometheus.DefBuckets,
		}),
		LastSweep: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_status_last_sweep_timestamp_seconds",
			Help: "Unix time of the last completed status sweep",
		}),
		Rebuilds: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dashboard_page_builds_total",
			Help: "Number of times the dashboard page was rendered",
		}),
	}
}

// RecordInjection adds the outcome of one injector run.
func (m *DashboardMetrics) RecordInjection(source string, report icons.Report) {
	if m == nil {
		return
	}
	m.IconsInjected.WithLabelValues(source, "resolved").Add(float64(report.Resolved))
	m.IconsInjected.WithLabelValues(source, "fallback").Add(float64(report.Fallback))
	m.IconsInjected.WithLabelValues(source, "skipped").Add(float64(report.Skipped))
}

// RecordSweep records the statuses of one complete sweep.
func (m *DashboardMetrics) RecordSweep(statuses []models.Status, took time.Duration, at time.Time) {
	if m == nil {
		return
	}
	for _, st := range statuses {
		up := 0.0
		if st.Up {
			up = 1
		}
		m.ServiceUp.WithLabelValues(st.Name, st.Category).Set(up)
	}
	m.CheckDuration.Observe(took.Seconds())
	m.LastSweep.Set(float64(at.Unix()))
}

// Handler returns the HTTP handler exposing Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

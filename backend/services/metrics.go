package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"cwatch-dashboard/backend/models"
)

// Metrics holds the Prometheus collectors of the dashboard gateway
type Metrics struct {
	Registry *prometheus.Registry

	Refreshes       *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	Mutations       *prometheus.CounterVec
	Generation      prometheus.Gauge
	Stale           prometheus.Gauge
	LastUpdated     prometheus.Gauge

	// Mirrors of the last committed stats
	UpstreamRequests *prometheus.GaugeVec
	ListedIPs        *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwatch_dashboard_refreshes_total",
			Help: "Refresh cycles by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cwatch_dashboard_refresh_duration_seconds",
			Help:    "Time until all five dashboard requests settled",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"outcome"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cwatch_dashboard_mutations_total",
			Help: "Block, unblock and mark-safe requests by result",
		}, []string{"action", "result"}),
		Generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cwatch_dashboard_generation",
			Help: "Generation of the last committed refresh",
		}),
		Stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cwatch_dashboard_stale",
			Help: "1 when the dashboard shows data from an older refresh",
		}),
		LastUpdated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cwatch_dashboard_last_updated_timestamp_seconds",
			Help: "Unix time of the last committed refresh",
		}),
		UpstreamRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cwatch_upstream_requests",
			Help: "Request counters reported by the CWatch API",
		}, []string{"window"}),
		ListedIPs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cwatch_upstream_ips",
			Help: "IP counts reported by the CWatch API",
		}, []string{"status"}),
	}

	m.Registry.MustRegister(
		m.Refreshes,
		m.RefreshDuration,
		m.Mutations,
		m.Generation,
		m.Stale,
		m.LastUpdated,
		m.UpstreamRequests,
		m.ListedIPs,
	)
	return m
}

// Attach updates the collectors from agg's refresh and mutation hooks.
func (m *Metrics) Attach(agg *Aggregator) {
	agg.OnRefresh(m.ObserveRefresh)
	agg.OnMutation(m.ObserveMutation)
}

func (m *Metrics) ObserveRefresh(res RefreshResult, state models.ViewState) {
	m.Refreshes.WithLabelValues(string(res.Trigger), string(res.Outcome)).Inc()
	m.RefreshDuration.WithLabelValues(string(res.Outcome)).Observe(res.Duration().Seconds())

	if state.Stale {
		m.Stale.Set(1)
	} else {
		m.Stale.Set(0)
	}
	if res.Outcome != models.OutcomeFresh {
		return
	}

	m.Generation.Set(float64(state.Generation))
	m.LastUpdated.Set(float64(state.LastUpdated.Unix()))

	s := state.Stats
	m.UpstreamRequests.WithLabelValues("total").Set(float64(s.TotalRequests))
	m.UpstreamRequests.WithLabelValues("today").Set(float64(s.RequestsToday))
	m.UpstreamRequests.WithLabelValues("hour").Set(float64(s.RequestsHour))
	m.ListedIPs.WithLabelValues(models.StatusSuspicious).Set(float64(s.SuspiciousIPs))
	m.ListedIPs.WithLabelValues(models.StatusBlocked).Set(float64(s.BlockedIPs))
	m.ListedIPs.WithLabelValues(models.StatusVerified).Set(float64(s.VerifiedIPs))
}

func (m *Metrics) ObserveMutation(res MutationResult) {
	result := "ok"
	if res.Err != nil {
		result = "error"
	}
	m.Mutations.WithLabelValues(string(res.Action), result).Inc()
}

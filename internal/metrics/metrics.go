// Package metrics exposes Prometheus instrumentation for the location services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homebase"

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PingsIngested        *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	GeofenceTransitions  *prometheus.CounterVec
	MovedSuppressed      prometheus.Counter
	Relogs               *prometheus.CounterVec
	MQTTMessages         *prometheus.CounterVec
}

// New creates and registers all metrics on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PingsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_ingested_total",
			Help:      "Location pings persisted, by kind.",
		}, []string{"kind"}),
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications persisted, by type.",
		}, []string{"type"}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be persisted, by type.",
		}, []string{"type"}),
		GeofenceTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_transitions_total",
			Help:      "Geofence transitions detected, by action.",
		}, []string{"action"}),
		MovedSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moved_notifications_suppressed_total",
			Help:      "Moved notification fan-outs skipped by the throttle.",
		}),
		Relogs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relog_runs_total",
			Help:      "Scheduled re-log runs, by result.",
		}, []string{"result"}),
		MQTTMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_messages_total",
			Help:      "MQTT publishes received by the ingest broker, by result.",
		}, []string{"result"}),
	}
}

// RegisterConnectionsGauge reports the number of live client channels through fn.
func (m *Metrics) RegisterConnectionsGauge(fn func() float64) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_connections",
		Help:      "Users with a registered live channel.",
	}, fn)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncPing(kind string) {
	if m == nil {
		return
	}
	m.PingsIngested.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncNotification(typ string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(typ).Inc()
}

func (m *Metrics) IncNotificationFailure(typ string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(typ).Inc()
}

func (m *Metrics) IncTransition(action string) {
	if m == nil {
		return
	}
	m.GeofenceTransitions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncMovedSuppressed() {
	if m == nil {
		return
	}
	m.MovedSuppressed.Inc()
}

func (m *Metrics) IncRelog(result string) {
	if m == nil {
		return
	}
	m.Relogs.WithLabelValues(result).Inc()
}

func (m *Metrics) IncMQTTMessage(result string) {
	if m == nil {
		return
	}
	m.MQTTMessages.WithLabelValues(result).Inc()
}

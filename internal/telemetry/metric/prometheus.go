package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kvs"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Job metrics
	CommandsTotal *prometheus.CounterVec
	JobsTotal     *prometheus.CounterVec

	// Backup metrics
	BackupsInFlight prometheus.Gauge
	BackupsTotal    *prometheus.CounterVec
	BackupDuration  prometheus.Histogram

	// Session metrics
	SessionsActive      prometheus.Gauge
	SessionsRejected    prometheus.Counter
	SubscriptionsActive prometheus.Gauge
	NotificationsTotal  *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
}

// NewRegistry creates a registry with every application metric and the
// Go runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "commands_total",
			Help:      "Job commands executed, by command",
		}, []string{"command"}),

		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Job files processed, by result",
		}, []string{"result"}),

		BackupsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "inflight",
			Help:      "Backups currently being written",
		}),

		BackupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "total",
			Help:      "Backups finished, by result",
		}, []string{"result"}),

		BackupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "duration_seconds",
			Help:      "Time spent writing a backup file",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Connected client sessions",
		}),

		SessionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "rejected_total",
			Help:      "Connect requests rejected because the registry was full",
		}),

		SubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "subscriptions_active",
			Help:      "Subscribed keys across all sessions",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "notifications_total",
			Help:      "Change notifications, by result (queued, dropped)",
		}, []string{"result"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "requests_total",
			Help:      "Client requests, by operation and status",
		}, []string{"op", "status"}),
	}

	r.registry.MustRegister(
		r.CommandsTotal,
		r.JobsTotal,
		r.BackupsInFlight,
		r.BackupsTotal,
		r.BackupDuration,
		r.SessionsActive,
		r.SessionsRejected,
		r.SubscriptionsActive,
		r.NotificationsTotal,
		r.RequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Gatherer exposes the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// RegisterStore registers the live key count and per-shard counts.
func (r *Registry) RegisterStore(keys func() int, shards func() []int) {
	if r == nil {
		return
	}
	r.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "keys",
			Help:      "Live keys in the table",
		}, func() float64 { return float64(keys()) }),
		NewShardCollector(shards),
	)
}

// CommandExecuted counts one job command.
func (r *Registry) CommandExecuted(command string) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command).Inc()
}

// JobFinished counts one job file with result "ok" or "failed".
func (r *Registry) JobFinished(result string) {
	if r == nil {
		return
	}
	r.JobsTotal.WithLabelValues(result).Inc()
}

// BackupStarted marks one backup writer as running.
func (r *Registry) BackupStarted() {
	if r == nil {
		return
	}
	r.BackupsInFlight.Inc()
}

// BackupFinished records the end of a backup writer.
func (r *Registry) BackupFinished(err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.BackupsInFlight.Dec()
	r.BackupDuration.Observe(elapsed.Seconds())
	if err != nil {
		r.BackupsTotal.WithLabelValues("failed").Inc()
		return
	}
	r.BackupsTotal.WithLabelValues("ok").Inc()
}

// SessionOpened records a registered session.
func (r *Registry) SessionOpened() {
	if r == nil {
		return
	}
	r.SessionsActive.Inc()
}

// SessionClosed records a removed session and its dropped subscriptions.
func (r *Registry) SessionClosed(subscriptions int) {
	if r == nil {
		return
	}
	r.SessionsActive.Dec()
	r.SubscriptionsActive.Sub(float64(subscriptions))
}

// SessionRejected records a connect refused at capacity.
func (r *Registry) SessionRejected() {
	if r == nil {
		return
	}
	r.SessionsRejected.Inc()
}

// SubscriptionsChanged adjusts the active subscription gauge.
func (r *Registry) SubscriptionsChanged(delta int) {
	if r == nil {
		return
	}
	r.SubscriptionsActive.Add(float64(delta))
}

// NotificationQueued counts one notification as queued or dropped.
func (r *Registry) NotificationQueued(queued bool) {
	if r == nil {
		return
	}
	if queued {
		r.NotificationsTotal.WithLabelValues("queued").Inc()
		return
	}
	r.NotificationsTotal.WithLabelValues("dropped").Inc()
}

// RequestHandled counts one client request.
func (r *Registry) RequestHandled(op string, ok bool) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.RequestsTotal.WithLabelValues(op, status).Inc()
}

package kmf

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the counter set the master side updates as it runs: the
// driver loop counts forwarded actions and failsafe triggers, and the
// master's per-client tasks count connects, disconnects and sent drops.
// The byte counters and DropsReceived have no caller, and the slave
// service updates no counter. Implementations must be safe for concurrent
// use — the driver loop and every per-client task call into the same
// instance.
type Metrics interface {
	IncrementBytesSent(n int64)
	IncrementBytesReceived(n int64)
	IncrementActionsForwarded()
	IncrementDropsSent()
	IncrementDropsReceived()
	IncrementClientsConnected()
	IncrementClientsDisconnected()
	IncrementFailsafeTriggers()

	GetBytesSent() int64
	GetBytesReceived() int64
	GetActionsForwarded() int64
	GetClientsConnected() int64
}

// DefaultMetrics implements Metrics with plain atomic counters, matching
// the teacher's own dependency-free metrics implementation exactly.
type DefaultMetrics struct {
	bytesSent            int64
	bytesReceived        int64
	actionsForwarded     int64
	dropsSent            int64
	dropsReceived        int64
	clientsConnected     int64
	clientsDisconnected  int64
	failsafeTriggers     int64
}

// NewDefaultMetrics creates a new DefaultMetrics instance.
func NewDefaultMetrics() *DefaultMetrics { return &DefaultMetrics{} }

func (m *DefaultMetrics) IncrementBytesSent(n int64)        { atomic.AddInt64(&m.bytesSent, n) }
func (m *DefaultMetrics) IncrementBytesReceived(n int64)    { atomic.AddInt64(&m.bytesReceived, n) }
func (m *DefaultMetrics) IncrementActionsForwarded()        { atomic.AddInt64(&m.actionsForwarded, 1) }
func (m *DefaultMetrics) IncrementDropsSent()               { atomic.AddInt64(&m.dropsSent, 1) }
func (m *DefaultMetrics) IncrementDropsReceived()           { atomic.AddInt64(&m.dropsReceived, 1) }
func (m *DefaultMetrics) IncrementClientsConnected()        { atomic.AddInt64(&m.clientsConnected, 1) }
func (m *DefaultMetrics) IncrementClientsDisconnected()     { atomic.AddInt64(&m.clientsDisconnected, 1) }
func (m *DefaultMetrics) IncrementFailsafeTriggers()        { atomic.AddInt64(&m.failsafeTriggers, 1) }

func (m *DefaultMetrics) GetBytesSent() int64         { return atomic.LoadInt64(&m.bytesSent) }
func (m *DefaultMetrics) GetBytesReceived() int64     { return atomic.LoadInt64(&m.bytesReceived) }
func (m *DefaultMetrics) GetActionsForwarded() int64  { return atomic.LoadInt64(&m.actionsForwarded) }
func (m *DefaultMetrics) GetClientsConnected() int64  { return atomic.LoadInt64(&m.clientsConnected) }

// PrometheusMetrics implements Metrics by feeding a private prometheus
// registry, so the same counter calls the driver loop and the master's
// per-client tasks already make also populate a /metrics endpoint — no
// caller needs to know which Metrics implementation is installed.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	bytesSent           prometheus.Counter
	bytesReceived       prometheus.Counter
	actionsForwarded    prometheus.Counter
	dropsSent           prometheus.Counter
	dropsReceived       prometheus.Counter
	clientsConnected    prometheus.Counter
	clientsDisconnected prometheus.Counter
	failsafeTriggers    prometheus.Counter

	actionsForwardedTotal int64
	bytesSentTotal        int64
	bytesReceivedTotal    int64
	clientsConnectedTotal int64
}

// NewPrometheusMetrics builds a Metrics implementation backed by its own
// prometheus.Registry, ready to be served with Handler().
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	ns := "kmf"
	return &PrometheusMetrics{
		registry: reg,
		bytesSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "bytes_sent_total", Help: "Bytes written to a peer connection.",
		}),
		bytesReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "bytes_received_total", Help: "Bytes read from a peer connection.",
		}),
		actionsForwarded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "actions_forwarded_total", Help: "GenericAction packets forwarded over the hub.",
		}),
		dropsSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "drops_sent_total", Help: "File-drop exchanges initiated as sender.",
		}),
		dropsReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "drops_received_total", Help: "File-drop exchanges served as receiver.",
		}),
		clientsConnected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "clients_connected_total", Help: "Slave connections accepted.",
		}),
		clientsDisconnected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "clients_disconnected_total", Help: "Slave connections that ended.",
		}),
		failsafeTriggers: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "failsafe_triggers_total", Help: "Failsafe chords that forced a shutdown.",
		}),
	}
}

// Handler returns the http.Handler serving this registry's metrics.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) IncrementBytesSent(n int64) {
	m.bytesSent.Add(float64(n))
	atomic.AddInt64(&m.bytesSentTotal, n)
}
func (m *PrometheusMetrics) IncrementBytesReceived(n int64) {
	m.bytesReceived.Add(float64(n))
	atomic.AddInt64(&m.bytesReceivedTotal, n)
}
func (m *PrometheusMetrics) IncrementActionsForwarded() {
	m.actionsForwarded.Inc()
	atomic.AddInt64(&m.actionsForwardedTotal, 1)
}
func (m *PrometheusMetrics) IncrementDropsSent()     { m.dropsSent.Inc() }
func (m *PrometheusMetrics) IncrementDropsReceived() { m.dropsReceived.Inc() }
func (m *PrometheusMetrics) IncrementClientsConnected() {
	m.clientsConnected.Inc()
	atomic.AddInt64(&m.clientsConnectedTotal, 1)
}
func (m *PrometheusMetrics) IncrementClientsDisconnected() { m.clientsDisconnected.Inc() }
func (m *PrometheusMetrics) IncrementFailsafeTriggers()    { m.failsafeTriggers.Inc() }

func (m *PrometheusMetrics) GetBytesSent() int64        { return atomic.LoadInt64(&m.bytesSentTotal) }
func (m *PrometheusMetrics) GetBytesReceived() int64    { return atomic.LoadInt64(&m.bytesReceivedTotal) }
func (m *PrometheusMetrics) GetActionsForwarded() int64 { return atomic.LoadInt64(&m.actionsForwardedTotal) }
func (m *PrometheusMetrics) GetClientsConnected() int64 { return atomic.LoadInt64(&m.clientsConnectedTotal) }

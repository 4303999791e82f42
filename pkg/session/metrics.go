package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus instruments for a session. A nil *Metrics records nothing.
type Metrics struct {
	state          prometheus.Gauge
	reconnects     prometheus.Counter
	authFailures   prometheus.Counter
	snapshots      prometheus.Counter
	malformed      prometheus.Counter
	frames         *prometheus.CounterVec // By direction (tx/rx) and kind
	commands       *prometheus.CounterVec // By result (ok/rejected/timeout/expired/lost)
	commandLatency prometheus.Histogram
	queueDepth     prometheus.Gauge
	siblingDrops   prometheus.Counter
}

// NewMetrics creates and registers session metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state (0 disconnected .. 5 stopped)",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Total number of scheduled reconnect attempts",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "auth_failures_total",
			Help:      "Total number of rejected or unanswered authentications",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "snapshots_total",
			Help:      "Total number of status snapshots applied",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "malformed_frames_total",
			Help:      "Total number of inbound frames that failed to decode",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Total number of frames by direction and kind",
		}, []string{"direction", "kind"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Total number of dispatched commands by result",
		}, []string{"result"}),
		commandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "command_latency_seconds",
			Help:      "Time from enqueue to device acknowledgment",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "queue_depth",
			Help:      "Number of commands waiting for dispatch",
		}),
		siblingDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ipcom",
			Subsystem: "session",
			Name:      "sibling_drops_total",
			Help:      "Total number of outputs that turned off after a command to a sibling",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.state, m.reconnects, m.authFailures, m.snapshots, m.malformed,
		m.frames, m.commands, m.commandLatency, m.queueDepth, m.siblingDrops,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}

func (m *Metrics) reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) authFailure() {
	if m == nil {
		return
	}
	m.authFailures.Inc()
}

func (m *Metrics) snapshot() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

func (m *Metrics) malformedFrame() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) frame(dir Direction, kind string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(string(dir), kind).Inc()
}

func (m *Metrics) command(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
	if result == "ok" {
		m.commandLatency.Observe(latency.Seconds())
	}
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) siblingDrop() {
	if m == nil {
		return
	}
	m.siblingDrops.Inc()
}

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "caseta"

// Command results.
const (
	resultResolved = "resolved"
	resultFailed   = "failed"
)

// Collector records bridge, command and HTTP activity.
//
// Thread Safety: All methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	commands     *prometheus.CounterVec
	unknown      prometheus.Counter
	dropped      prometheus.Counter
	updates      *prometheus.CounterVec
	gestures     *prometheus.CounterVec
	feedback     *prometheus.CounterVec
	bridgeUp     prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// New creates a Collector with Go runtime and process metrics registered.
//
// Parameters:
//   - namespace: Metric name prefix; DefaultNamespace when empty
//
// Returns:
//   - *Collector: Ready to record and serve
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "MQTT commands by name and result.",
		}, []string{"command", "result"}),
		unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_commands_total",
			Help:      "MQTT commands whose name matched no known operation.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_commands_total",
			Help:      "MQTT commands dropped because a work queue was full.",
		}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_updates_total",
			Help:      "State updates received from the bridge by device kind.",
		}, []string{"kind"}),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_gestures_total",
			Help:      "Derived button gestures.",
		}, []string{"gesture"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_messages_total",
			Help:      "Feedback publishes by outcome.",
		}, []string{"outcome"}),
		bridgeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_connected",
			Help:      "1 while the bridge session is up.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route, method and status.",
		}, []string{"route", "method", "status"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.commands,
		c.unknown,
		c.dropped,
		c.updates,
		c.gestures,
		c.feedback,
		c.bridgeUp,
		c.httpRequests,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) CommandResolved(command string) {
	c.commands.WithLabelValues(command, resultResolved).Inc()
}

func (c *Collector) CommandFailed(command string) {
	c.commands.WithLabelValues(command, resultFailed).Inc()
}

func (c *Collector) UnknownCommand() { c.unknown.Inc() }

func (c *Collector) CommandDropped() { c.dropped.Inc() }

func (c *Collector) StateUpdate(kind string) { c.updates.WithLabelValues(kind).Inc() }

func (c *Collector) ButtonGesture(gesture string) { c.gestures.WithLabelValues(gesture).Inc() }

func (c *Collector) FeedbackPublished() { c.feedback.WithLabelValues("published").Inc() }

func (c *Collector) FeedbackDropped() { c.feedback.WithLabelValues("dropped").Inc() }

// BridgeConnected sets the bridge session gauge.
func (c *Collector) BridgeConnected(connected bool) {
	if connected {
		c.bridgeUp.Set(1)
		return
	}
	c.bridgeUp.Set(0)
}

// HTTPRequest counts one served API request. route should be the router
// pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) HTTPRequest(route, method string, status int) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

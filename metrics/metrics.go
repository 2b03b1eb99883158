// Package metrics exposes engine handle lifecycle and call activity as
// Prometheus metrics.
package metrics

import (
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/wippyai/wasm-guard/capi"
	"github.com/wippyai/wasm-guard/errors"
	"github.com/wippyai/wasm-guard/resource"
	"github.com/wippyai/wasm-guard/runtime"
)

const namespace = "wasmguard"

// Metrics collects engine metrics into its own registry.
type Metrics struct {
	registry     *prometheus.Registry
	handleEvents *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec

	mu     sync.Mutex
	cancel func()
}

// New creates the metrics and registers them, along with a collector of
// engine statistics, in a fresh registry. Nothing is observed until Start.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		handleEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handle_events_total",
				Help:      "Module and instance handle lifecycle events",
			},
			[]string{"type", "event"},
		),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Exported function calls by outcome",
			},
			[]string{"func", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Exported function call duration in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
			[]string{"func"},
		),
	}
	m.registry.MustRegister(m.handleEvents, m.calls, m.callDuration, newEngineCollector(capi.GetStats))
	return m
}

// Registry returns the registry holding every wasm-guard metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start subscribes to engine handle events and installs m as the call
// observer of the runtime package. Starting twice does nothing.
func (m *Metrics) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	unsubscribe := capi.Subscribe(m)
	runtime.SetCallObserver(m)
	m.cancel = func() {
		unsubscribe()
		runtime.SetCallObserver(nil)
	}
}

// Stop undoes Start.
func (m *Metrics) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// OnResourceEvent implements resource.Observer.
func (m *Metrics) OnResourceEvent(e resource.Event) {
	m.handleEvents.WithLabelValues(typeName(e.TypeID), e.Type.String()).Inc()
}

// ObserveCall implements runtime.CallObserver.
func (m *Metrics) ObserveCall(name string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errors.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.calls.WithLabelValues(name, outcome).Inc()
	m.callDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// WriteText writes every metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func typeName(id uint32) string {
	switch id {
	case capi.TypeModule:
		return "module"
	case capi.TypeInstance:
		return "instance"
	default:
		return "unknown"
	}
}

type engineCollector struct {
	stats func() capi.Stats

	modules    *prometheus.Desc
	instances  *prometheus.Desc
	executions *prometheus.Desc
	traps      *prometheus.Desc
}

func newEngineCollector(stats func() capi.Stats) *engineCollector {
	return &engineCollector{
		stats: stats,
		modules: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_modules"),
			"Module handles currently held by the engine",
			nil, nil,
		),
		instances: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_instances"),
			"Instance handles currently held by the engine",
			nil, nil,
		),
		executions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "executions_total"),
			"Function executions started by the engine",
			nil, nil,
		),
		traps: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "traps_total"),
			"Function executions that trapped",
			nil, nil,
		),
	}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.modules
	ch <- c.instances
	ch <- c.executions
	ch <- c.traps
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.modules, prometheus.GaugeValue, float64(s.Modules))
	ch <- prometheus.MustNewConstMetric(c.instances, prometheus.GaugeValue, float64(s.Instances))
	ch <- prometheus.MustNewConstMetric(c.executions, prometheus.CounterValue, float64(s.Executions))
	ch <- prometheus.MustNewConstMetric(c.traps, prometheus.CounterValue, float64(s.Traps))
}

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledgerbot"

// Message outcomes
const (
	OutcomeReplied   = "replied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeBlocked   = "blocked"
	OutcomeError     = "error"
)

type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	messages       *prometheus.CounterVec
	commands       *prometheus.CounterVec
	storeCalls     *prometheus.CounterVec
	undos          *prometheus.CounterVec
	handleDuration prometheus.Histogram
	uptime         prometheus.GaugeFunc
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New creates metrics on a private registry so tests never collide
func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound chat messages by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched commands by name.",
		}, []string{"command"}),
		storeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Ledger store calls by operation and result.",
		}, []string{"op", "result"}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_total",
			Help:      "Undo attempts by action kind and result.",
		}, []string{"kind", "result"}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one message, store calls included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
	}
	m.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started.",
	}, func() float64 { return m.Uptime().Seconds() })

	m.registry.MustRegister(
		m.messages, m.commands, m.storeCalls, m.undos, m.handleDuration, m.uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordMessage(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCommand(name string) {
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) RecordStoreCall(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeCalls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) RecordUndo(kind string, success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	m.undos.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordHandleTime(d time.Duration) {
	m.handleDuration.Observe(d.Seconds())
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Registry exposes the underlying registry for scraping and tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func RecordMessage(outcome string) {
	Default().RecordMessage(outcome)
}

func RecordCommand(name string) {
	Default().RecordCommand(name)
}

func RecordStoreCall(op string, err error) {
	Default().RecordStoreCall(op, err)
}

func RecordUndo(kind string, success bool) {
	Default().RecordUndo(kind, success)
}

func RecordHandleTime(d time.Duration) {
	Default().RecordHandleTime(d)
}

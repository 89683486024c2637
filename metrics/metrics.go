// Package metrics provides Prometheus metrics for the Emerald adapter:
// decided heights, Engine-API call latency and error rates, and store
// pruning activity.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the adapter.
type Metrics struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	decidedHeightsTotal prometheus.Counter
	decisionDuration    prometheus.Histogram
	currentHeight       prometheus.Gauge
	currentRound        prometheus.Gauge

	engineCallsTotal   *prometheus.CounterVec
	engineCallErrors   *prometheus.CounterVec
	engineCallDuration *prometheus.HistogramVec

	newPayloadSyncingRetries prometheus.Counter

	storePrunedBodiesTotal prometheus.Counter
	storePrunedCertsTotal  prometheus.Counter

	assemblerBufferedParts prometheus.Gauge

	roundStartTimes map[uint64]time.Time
}

// New creates a new Metrics instance and registers all collectors under
// namespace on its own registry, rather than the global default
// registerer, so that multiple independent instances (as in tests) never
// collide over duplicate collector names.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry:        prometheus.NewRegistry(),
		roundStartTimes: make(map[uint64]time.Time),
	}

	m.decidedHeightsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decided_heights_total",
		Help:      "Total number of heights decided",
	})

	m.decisionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "decision_duration_seconds",
		Help:      "Time spent handling Decided for a height, from newPayload to commit",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	})

	m.currentHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_height",
		Help:      "Current consensus height",
	})

	m.currentRound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "current_round",
		Help:      "Current round within the height",
	})

	m.engineCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_calls_total",
		Help:      "Total Engine/standard API calls by method",
	}, []string{"method"})

	m.engineCallErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_call_errors_total",
		Help:      "Total Engine/standard API call errors by method",
	}, []string{"method"})

	m.engineCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "engine_call_duration_seconds",
		Help:      "Engine/standard API call latency by method",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"method"})

	m.newPayloadSyncingRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "new_payload_syncing_retries_total",
		Help:      "Total newPayload retries caused by a SYNCING response",
	})

	m.storePrunedBodiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_pruned_bodies_total",
		Help:      "Total bodies removed by the body pruner",
	})

	m.storePrunedCertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_pruned_certificates_total",
		Help:      "Total certificates removed by the certificate pruner",
	})

	m.assemblerBufferedParts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "assembler_buffered_parts",
		Help:      "Proposal parts currently buffered awaiting reassembly",
	})

	m.registry.MustRegister(
		m.decidedHeightsTotal,
		m.decisionDuration,
		m.currentHeight,
		m.currentRound,
		m.engineCallsTotal,
		m.engineCallErrors,
		m.engineCallDuration,
		m.newPayloadSyncingRetries,
		m.storePrunedBodiesTotal,
		m.storePrunedCertsTotal,
		m.assemblerBufferedParts,
	)

	return m
}

// StartDecision records the start of a height's decision timer.
func (m *Metrics) StartDecision(height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundStartTimes[height] = time.Now()
}

// EndDecision records the completion of a height's decision.
func (m *Metrics) EndDecision(height uint64) {
	m.mu.Lock()
	start, ok := m.roundStartTimes[height]
	if ok {
		delete(m.roundStartTimes, height)
	}
	m.mu.Unlock()

	if ok {
		m.decisionDuration.Observe(time.Since(start).Seconds())
		m.decidedHeightsTotal.Inc()
	}
}

func (m *Metrics) SetHeight(height uint64) { m.currentHeight.Set(float64(height)) }
func (m *Metrics) SetRound(round uint64)   { m.currentRound.Set(float64(round)) }

func (m *Metrics) ObserveEngineCall(method string, duration time.Duration, err error) {
	m.engineCallsTotal.WithLabelValues(method).Inc()
	m.engineCallDuration.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		m.engineCallErrors.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) IncrementNewPayloadSyncingRetry() { m.newPayloadSyncingRetries.Inc() }

func (m *Metrics) AddPrunedBodies(n int) { m.storePrunedBodiesTotal.Add(float64(n)) }
func (m *Metrics) AddPrunedCerts(n int)  { m.storePrunedCertsTotal.Add(float64(n)) }

func (m *Metrics) SetBufferedParts(n int) { m.assemblerBufferedParts.Set(float64(n)) }

// Server serves the /metrics scrape endpoint.
type Server struct {
	addr   string
	server *http.Server
}

// NewServer creates a new metrics HTTP server listening on addr,
// scraping m's own registry rather than the global default one.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &Server{addr: addr, server: &http.Server{Addr: addr, Handler: mux}}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
}

// Stop shuts down the metrics server.
func (s *Server) Stop() error {
	return s.server.Close()
}

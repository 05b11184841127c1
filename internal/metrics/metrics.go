// Package metrics holds the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing, so components and tests can skip it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "applicant_rag"

type Metrics struct {
	registry *prometheus.Registry

	throttleWait     prometheus.Histogram
	throttleTimeouts prometheus.Counter
	providerCalls    *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	chunksIndexed    prometheus.Counter
	filesIngested    *prometheus.CounterVec
	retrievals       prometheus.Counter
	retrievedChunks  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		throttleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "throttle_wait_seconds",
			Help:      "Time a provider call waited at the throttle gate.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.15, 0.3, 0.6, 1, 2.5, 5},
		}),
		throttleTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_timeouts_total",
			Help:      "Provider calls rejected because the gate lock was not acquired in time.",
		}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Embedding and completion calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of provider calls, excluding gate wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		chunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks uploaded to the vector store.",
		}),
		filesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Vectorize requests by final status.",
		}, []string{"status"}),
		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Multi-query retrievals served.",
		}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_chunks",
			Help:      "Chunks returned per retrieval after union.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.throttleWait,
		m.throttleTimeouts,
		m.providerCalls,
		m.providerLatency,
		m.chunksIndexed,
		m.filesIngested,
		m.retrievals,
		m.retrievedChunks,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveThrottleWait(d time.Duration) {
	if m == nil {
		return
	}
	m.throttleWait.Observe(d.Seconds())
}

func (m *Metrics) IncThrottleTimeout() {
	if m == nil {
		return
	}
	m.throttleTimeouts.Inc()
}

func (m *Metrics) ObserveProviderCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(operation, outcome).Inc()
	m.providerLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) AddChunksIndexed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.chunksIndexed.Add(float64(n))
}

func (m *Metrics) IncFileIngested(status string) {
	if m == nil {
		return
	}
	m.filesIngested.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRetrieval(chunks int) {
	if m == nil {
		return
	}
	m.retrievals.Inc()
	m.retrievedChunks.Observe(float64(chunks))
}

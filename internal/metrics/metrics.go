// Package metrics exposes the ambient, process-wide Prometheus collectors.
//
// Reconstructed from the teacher's call-site contract (internal/api,
// internal/resolver referenced a metrics package that was never present in
// the retrieved pack) and repurposed for this domain. Kept strictly
// distinct from internal/suggestmetrics.Tracker, which is a per-request,
// explicitly-threaded accumulator rather than a package-level singleton —
// see spec.md §9's "Global state" design note.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP requests served by the Orchestrator's
	// external surface, labeled by route and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_api_requests_total",
		Help: "Total HTTP requests served by the suggestion API.",
	}, []string{"route", "status"})

	// APIResultPollsTotal counts polls against a suggestion's task status
	// (kept for parity with the teacher's polling-API instrumentation). No
	// code path in this module increments it: the suggest CLI sends one
	// request per suggestion and does not poll.
	APIResultPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_result_polls_total",
		Help: "Total polls against a suggestion's status.",
	}, []string{"status"})

	// ResolverQueriesTotal counts DNS phase probes, labeled by upstream
	// target and outcome.
	ResolverQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_resolver_queries_total",
		Help: "Total DNS phase probes issued by the Domain Check Logic.",
	}, []string{"target", "outcome"})

	// ResolverQueryDuration histograms DNS phase probe latency in seconds.
	ResolverQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domain_discovery_resolver_query_duration_seconds",
		Help:    "DNS phase probe latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})

	// ResolverQueryErrors counts DNS phase probe errors by reason.
	ResolverQueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_resolver_query_errors_total",
		Help: "Total DNS phase probe errors.",
	}, []string{"target", "reason"})

	// WHOISQueriesTotal counts WHOIS phase lookups by outcome.
	WHOISQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_whois_queries_total",
		Help: "Total WHOIS phase lookups issued by the Domain Check Logic.",
	}, []string{"outcome"})

	// QueueDepthGauge tracks the last-sampled work queue depth.
	QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "domain_discovery_queue_depth",
		Help: "Most recently sampled work queue depth.",
	})

	// WorkerJobsTotal counts jobs processed by the Worker Runtime, labeled
	// by worker_id and resulting worker status.
	WorkerJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_worker_jobs_total",
		Help: "Total domain-check jobs processed by worker runtimes.",
	}, []string{"worker_id", "status"})

	// LLMCallsTotal counts LLM Client calls, labeled by prompt_type and
	// outcome.
	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_discovery_llm_calls_total",
		Help: "Total LLM Client completion calls.",
	}, []string{"prompt_type", "outcome"})
)

// RecordResolverQuery records a DNS phase probe's outcome and duration.
func RecordResolverQuery(target, outcome string, seconds float64) {
	ResolverQueriesTotal.WithLabelValues(target, outcome).Inc()
	ResolverQueryDuration.WithLabelValues(target).Observe(seconds)
}

// Package metrics provides internal Prometheus instrumentation.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the instrument set. Each instance registers on its own
// registry so tests can instantiate collectors independently.
type Collector struct {
	registry *prometheus.Registry

	MatchRequests  prometheus.Counter
	MatchFailures  prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter

	ActiveConversations prometheus.Gauge
	ConversationSweeps  prometheus.Counter

	Executions *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "apibridge"
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		MatchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Total number of ranking passes",
		}),
		MatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_failures_total",
			Help:      "Ranking passes that produced no candidate",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_hits_total",
			Help:      "Query embedding cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_misses_total",
			Help:      "Query embedding cache misses",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_evictions_total",
			Help:      "Entries evicted from the query embedding cache",
		}),
		ActiveConversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently tracked by the session manager",
		}),
		ConversationSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_sweeps_total",
			Help:      "Idle-conversation sweep runs",
		}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Synthesized request executions by outcome",
		}, []string{"status"}),
	}

	registry.MustRegister(
		c.MatchRequests,
		c.MatchFailures,
		c.CacheHits,
		c.CacheMisses,
		c.CacheEvictions,
		c.ActiveConversations,
		c.ConversationSweeps,
		c.Executions,
	)

	return c
}

// Registry exposes the collector's registry for scraping.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

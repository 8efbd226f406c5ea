// Package metrics exposes Prometheus instrumentation for tool calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolInvocations counts tool calls by name and outcome.
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocmcp_tool_invocations_total",
		Help: "Number of tool invocations by tool name and status.",
	}, []string{"tool", "status"})

	// ToolDuration tracks tool call latency by name.
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocmcp_tool_duration_seconds",
		Help:    "Tool invocation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	// SearchHits counts log search matches by source.
	SearchHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocmcp_search_hits_total",
		Help: "Number of log search hits by source.",
	}, []string{"source"})

	// ClusterAvailable reports whether a live cluster connection exists.
	ClusterAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocmcp_cluster_available",
		Help: "1 when a cluster connection is established, 0 otherwise.",
	})
)

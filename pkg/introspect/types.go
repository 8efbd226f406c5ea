// Package introspect resolves cluster workloads to the operators that own
// them and aggregates logs, events, and health facets across sources.
package introspect

// ObjectRef identifies a namespaced object by kind and name.
type ObjectRef struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// Resolution methods, most to least reliable.
const (
	MethodOwnerChain    = "owner-chain"
	MethodNameHeuristic = "name-heuristic"
	MethodNone          = "none"
)

// ResolvedPodSet is the result of resolving an operator to its pods.
type ResolvedPodSet struct {
	Operator    string       `json:"operator"`
	Namespace   string       `json:"namespace"`
	CSV         string       `json:"csv,omitempty"`
	Deployments []ObjectRef  `json:"deployments,omitempty"`
	Pods        []PodSummary `json:"pods"`
	Method      string       `json:"method"`
}

// PodSummary is the serialized pod view returned by resolution and
// capability queries.
type PodSummary struct {
	Name       string   `json:"name"`
	Namespace  string   `json:"namespace"`
	Phase      string   `json:"phase"`
	Node       string   `json:"node,omitempty"`
	Ready      string   `json:"ready,omitempty"`
	Restarts   int32    `json:"restarts"`
	Containers []string `json:"containers,omitempty"`
	Created    string   `json:"created,omitempty"`

	// Container resource requests and limits whose resource name matched
	// the capability taxonomy, e.g. nvidia.com/gpu. Only set on capability
	// workload queries.
	ResourceRequests map[string]string `json:"resource_requests,omitempty"`
	ResourceLimits   map[string]string `json:"resource_limits,omitempty"`
}

// Operator sources.
const (
	SourceOLM    = "olm"
	SourceHelm   = "helm"
	SourceCustom = "custom"
)

// OperatorInfo is one discovered operator regardless of install mechanism.
type OperatorInfo struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace,omitempty"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name,omitempty"`
	Version     string `json:"version,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Channel     string `json:"channel,omitempty"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Search sources.
const (
	SourcePodLogs = "pod_logs"
	SourceEvents  = "events"
	SourceBuilds  = "build_logs"
)

// SearchHit is a single match from one source.
type SearchHit struct {
	Source    string   `json:"source"`
	Namespace string   `json:"namespace,omitempty"`
	Object    string   `json:"object"`
	Lines     []string `json:"lines"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// SearchResult aggregates hits and per-source counts for one query.
type SearchResult struct {
	Pattern      string         `json:"pattern"`
	Namespace    string         `json:"namespace,omitempty"`
	Hits         []SearchHit    `json:"hits"`
	TotalMatches int            `json:"total_matches"`
	Scanned      map[string]int `json:"scanned"`
	Errors       []string       `json:"errors,omitempty"`
}

// Health status values for the aggregate snapshot.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthUnknown  = "unknown"
)

// HealthSnapshot is the aggregate health view of one capability domain.
type HealthSnapshot struct {
	Domain            string         `json:"domain"`
	OperatorInstalled bool           `json:"operator_installed"`
	OperatorHealthy   bool           `json:"operator_healthy"`
	OperatorPhase     string         `json:"operator_phase,omitempty"`
	PodsTotal         int            `json:"pods_total"`
	PodsRunning       int            `json:"pods_running"`
	ProblemPods       []PodSummary   `json:"problem_pods,omitempty"`
	RecentErrors      []SearchHit    `json:"recent_errors,omitempty"`
	Diagnostics       map[string]any `json:"diagnostics,omitempty"`
	HealthStatus      string         `json:"health_status"`
}

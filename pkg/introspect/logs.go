package introspect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

const comprehensiveTailLines = 100

// PodLogEntry holds the recent log tail of one resolved pod.
type PodLogEntry struct {
	Pod   string `json:"pod"`
	Phase string `json:"phase"`
	Logs  string `json:"logs,omitempty"`
	Error string `json:"error,omitempty"`
}

// EventEntry is one flattened cluster event.
type EventEntry struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Object    string `json:"object"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// BuildLogEntry holds the log tail of one build.
type BuildLogEntry struct {
	Build string `json:"build"`
	Phase string `json:"phase"`
	Logs  string `json:"logs,omitempty"`
	Error string `json:"error,omitempty"`
}

// OperatorLogs is the combined log view for one operator: the log tails of
// its resolved pods plus the events and build logs of its namespace.
type OperatorLogs struct {
	Operator  string          `json:"operator"`
	Namespace string          `json:"namespace"`
	Method    string          `json:"method"`
	PodLogs   []PodLogEntry   `json:"pod_logs"`
	Events    []EventEntry    `json:"events,omitempty"`
	BuildLogs []BuildLogEntry `json:"build_logs,omitempty"`
}

// Collector gathers the combined log view for an operator.
type Collector struct {
	client   *k8s.Client
	resolver *Resolver
}

// NewCollector returns a log collector backed by the given cluster client.
func NewCollector(client *k8s.Client) *Collector {
	return &Collector{client: client, resolver: NewResolver(client)}
}

// ComprehensiveLogs resolves the operator's pods and collects their recent
// log tails together with the operator's events and build logs. Events are
// kept when the involved object name carries the operator string; builds
// when their name does, both case-insensitively. A pod or build whose logs
// cannot be fetched carries its error inline instead of dropping out.
func (c *Collector) ComprehensiveLogs(ctx context.Context, operator, namespace string) (*OperatorLogs, error) {
	resolved, err := c.resolver.Resolve(ctx, operator, namespace)
	if err != nil {
		return nil, err
	}

	result := &OperatorLogs{
		Operator:  operator,
		Namespace: namespace,
		Method:    resolved.Method,
		PodLogs:   []PodLogEntry{},
	}

	for _, pod := range resolved.Pods {
		entry := PodLogEntry{Pod: pod.Name, Phase: pod.Phase}
		logs, err := c.client.GetPodLogs(ctx, pod.Namespace, pod.Name, comprehensiveTailLines)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Logs = logs
		}
		result.PodLogs = append(result.PodLogs, entry)
	}

	needle := strings.ToLower(operator)
	if events, err := c.client.ListEvents(ctx, namespace, DefaultMaxEvents); err == nil {
		for _, ev := range events {
			if !strings.Contains(strings.ToLower(ev.InvolvedObject.Name), needle) {
				continue
			}
			entry := EventEntry{
				Type:    ev.Type,
				Reason:  ev.Reason,
				Object:  fmt.Sprintf("%s/%s", ev.InvolvedObject.Kind, ev.InvolvedObject.Name),
				Message: ev.Message,
			}
			if !ev.LastTimestamp.IsZero() {
				entry.Timestamp = ev.LastTimestamp.UTC().Format(time.RFC3339)
			}
			result.Events = append(result.Events, entry)
		}
	}

	builds, err := c.client.ListBuilds(ctx, namespace)
	if err != nil {
		// No build API on plain Kubernetes; events and pod logs still stand.
		return result, nil
	}
	var related []k8s.BuildInfo
	for _, b := range builds {
		if strings.Contains(strings.ToLower(b.Name), needle) {
			related = append(related, b)
		}
	}
	if len(related) > DefaultMaxBuilds {
		related = related[:DefaultMaxBuilds]
	}
	for _, b := range related {
		entry := BuildLogEntry{Build: b.Name, Phase: b.Phase}
		logs, err := c.client.GetBuildLog(ctx, b.Namespace, b.Name)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Logs = logs
		}
		result.BuildLogs = append(result.BuildLogs, entry)
	}
	return result, nil
}

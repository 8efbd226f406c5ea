package introspect

import (
	"context"
	"sort"

	corev1 "k8s.io/api/core/v1"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

// NodeSummary is the serialized view of a capability-bearing node.
type NodeSummary struct {
	Name           string            `json:"name"`
	Ready          bool              `json:"ready"`
	Labels         map[string]string `json:"labels,omitempty"`
	Annotations    map[string]string `json:"annotations,omitempty"`
	Taints         []TaintInfo       `json:"taints,omitempty"`
	Conditions     []NodeCondition   `json:"conditions,omitempty"`
	Capacity       map[string]string `json:"capacity,omitempty"`
	Allocatable    map[string]string `json:"allocatable,omitempty"`
	KubeletVersion string            `json:"kubelet_version,omitempty"`
}

// TaintInfo is a node taint in serialized form.
type TaintInfo struct {
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	Effect string `json:"effect,omitempty"`
}

// NodeCondition is a node status condition in serialized form.
type NodeCondition struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Classifier finds the nodes and workloads belonging to a hardware
// capability domain by matching taxonomy keywords against labels,
// resource names, and object names.
type Classifier struct {
	client *k8s.Client
}

// NewClassifier returns a classifier backed by the given cluster client.
func NewClassifier(client *k8s.Client) *Classifier {
	return &Classifier{client: client}
}

// CapabilityNodes lists nodes whose labels, annotations, or extended
// resources match the taxonomy. Only the matching labels and annotations
// are echoed back to keep the payload readable on heavily labeled nodes.
func (c *Classifier) CapabilityNodes(ctx context.Context, taxonomy Taxonomy) ([]NodeSummary, error) {
	nodes, err := c.client.ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	var result []NodeSummary
	for _, node := range nodes {
		if !nodeMatches(&node, taxonomy) {
			continue
		}
		summary := NodeSummary{
			Name:           node.Name,
			Ready:          nodeReady(&node),
			Labels:         map[string]string{},
			KubeletVersion: node.Status.NodeInfo.KubeletVersion,
		}
		for k, v := range node.Labels {
			if taxonomy.Matches(k) || taxonomy.Matches(v) {
				summary.Labels[k] = v
			}
		}
		for k, v := range node.Annotations {
			if taxonomy.Matches(k) || taxonomy.Matches(v) {
				if summary.Annotations == nil {
					summary.Annotations = map[string]string{}
				}
				summary.Annotations[k] = v
			}
		}
		for _, taint := range node.Spec.Taints {
			summary.Taints = append(summary.Taints, TaintInfo{
				Key:    taint.Key,
				Value:  taint.Value,
				Effect: string(taint.Effect),
			})
		}
		// Ready is always reported; hardware conditions only when the
		// taxonomy matches their type.
		for _, cond := range node.Status.Conditions {
			if cond.Type != corev1.NodeReady && !taxonomy.Matches(string(cond.Type)) {
				continue
			}
			summary.Conditions = append(summary.Conditions, NodeCondition{
				Type:    string(cond.Type),
				Status:  string(cond.Status),
				Reason:  cond.Reason,
				Message: cond.Message,
			})
		}
		for name, qty := range node.Status.Capacity {
			if taxonomy.Matches(string(name)) {
				if summary.Capacity == nil {
					summary.Capacity = map[string]string{}
				}
				summary.Capacity[string(name)] = qty.String()
			}
		}
		for name, qty := range node.Status.Allocatable {
			if taxonomy.Matches(string(name)) {
				if summary.Allocatable == nil {
					summary.Allocatable = map[string]string{}
				}
				summary.Allocatable[string(name)] = qty.String()
			}
		}
		result = append(result, summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CapabilityWorkloads lists pods whose name, namespace, labels, or
// container resource requests and limits match the taxonomy, sorted by
// namespace then name. A pod requesting nvidia.com/gpu counts as a GPU
// workload whatever its name says.
func (c *Classifier) CapabilityWorkloads(ctx context.Context, taxonomy Taxonomy, namespace string) ([]PodSummary, error) {
	pods, err := c.client.ListPods(ctx, namespace)
	if err != nil {
		return nil, err
	}

	var result []PodSummary
	for i := range pods {
		pod := &pods[i]
		requests, limits := matchedResources(pod, taxonomy)
		if !taxonomy.MatchesAny(pod.Name, pod.Namespace) && !taxonomy.MatchesLabels(pod.Labels) &&
			len(requests) == 0 && len(limits) == 0 {
			continue
		}
		summary := SummarizePod(pod)
		summary.ResourceRequests = requests
		summary.ResourceLimits = limits
		result = append(result, summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Namespace != result[j].Namespace {
			return result[i].Namespace < result[j].Namespace
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// matchedResources collects the container resource requests and limits
// whose resource name matches the taxonomy.
func matchedResources(pod *corev1.Pod, taxonomy Taxonomy) (requests, limits map[string]string) {
	for _, container := range pod.Spec.Containers {
		for name, qty := range container.Resources.Requests {
			if taxonomy.Matches(string(name)) {
				if requests == nil {
					requests = map[string]string{}
				}
				requests[string(name)] = qty.String()
			}
		}
		for name, qty := range container.Resources.Limits {
			if taxonomy.Matches(string(name)) {
				if limits == nil {
					limits = map[string]string{}
				}
				limits[string(name)] = qty.String()
			}
		}
	}
	return requests, limits
}

func nodeMatches(node *corev1.Node, taxonomy Taxonomy) bool {
	if taxonomy.MatchesLabels(node.Labels) || taxonomy.MatchesLabels(node.Annotations) {
		return true
	}
	for name := range node.Status.Capacity {
		if taxonomy.Matches(string(name)) {
			return true
		}
	}
	return false
}

func nodeReady(node *corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

package introspect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

// Resolver walks the OLM ownership chain from an operator name down to its
// running pods, with a name heuristic fallback for operators installed
// outside OLM.
type Resolver struct {
	client *k8s.Client
}

// NewResolver returns a resolver backed by the given cluster client.
func NewResolver(client *k8s.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve finds the pods belonging to the named operator in a namespace.
//
// The owner chain is tried first: a CSV whose name contains the operator
// string, the deployments that CSV owns, and the pods whose ReplicaSet
// carries a deployment's name prefix. When no CSV matches, or the chain
// yields no pods, resolution falls back to a case-insensitive substring
// match on pod names. Fallback results are marked so callers can tell
// reliable resolution from guesswork.
func (r *Resolver) Resolve(ctx context.Context, operator, namespace string) (*ResolvedPodSet, error) {
	if operator == "" {
		return nil, fmt.Errorf("operator name is required")
	}

	result := &ResolvedPodSet{
		Operator:  operator,
		Namespace: namespace,
		Pods:      []PodSummary{},
		Method:    MethodNone,
	}

	pods, err := r.client.ListPods(ctx, namespace)
	if err != nil {
		return nil, err
	}

	csvName := r.matchCSV(ctx, operator, namespace)
	if csvName != "" {
		result.CSV = csvName
		deployments := r.csvDeployments(ctx, csvName, namespace)
		if len(deployments) > 0 {
			for _, d := range deployments {
				result.Deployments = append(result.Deployments, ObjectRef{
					Kind: "Deployment", Name: d.Name, Namespace: d.Namespace,
				})
			}
			owned := podsForDeployments(pods, deployments)
			if len(owned) > 0 {
				result.Pods = summarizePods(owned)
				result.Method = MethodOwnerChain
				return result, nil
			}
		}
	}

	// Heuristic fallback: operators installed via Helm or raw manifests
	// have no CSV to anchor on.
	matched := podsByName(pods, operator)
	if len(matched) > 0 {
		result.Pods = summarizePods(matched)
		result.Method = MethodNameHeuristic
	}
	return result, nil
}

// matchCSV returns the lexically first CSV whose name contains the operator
// string. The match is case sensitive; CSV names are lowercase by OLM
// convention, and a casing mismatch means the chain should not anchor here.
// CSV listing errors are swallowed so clusters without OLM still resolve via
// the name heuristic.
func (r *Resolver) matchCSV(ctx context.Context, operator, namespace string) string {
	csvs, err := r.client.ListCSVs(ctx, namespace)
	if err != nil {
		return ""
	}

	var candidates []string
	for _, c := range csvs {
		if strings.Contains(c.Name, operator) {
			candidates = append(candidates, c.Name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

// csvDeployments lists deployments owner-referenced by the CSV.
func (r *Resolver) csvDeployments(ctx context.Context, csvName, namespace string) []appsv1.Deployment {
	deployments, err := r.client.ListDeployments(ctx, namespace)
	if err != nil {
		return nil
	}

	var owned []appsv1.Deployment
	for _, d := range deployments {
		for _, ref := range d.OwnerReferences {
			if ref.Kind == "ClusterServiceVersion" && ref.Name == csvName {
				owned = append(owned, d)
				break
			}
		}
	}
	return owned
}

// podsForDeployments keeps pods whose ReplicaSet owner carries one of the
// deployment names as a prefix. Deployments name their ReplicaSets
// "<deployment>-<hash>", so the prefix is the cheapest reliable link
// without an extra ReplicaSet list call.
func podsForDeployments(pods []corev1.Pod, deployments []appsv1.Deployment) []corev1.Pod {
	var matched []corev1.Pod
	for _, pod := range pods {
		for _, ref := range pod.OwnerReferences {
			if ref.Kind != "ReplicaSet" {
				continue
			}
			for _, d := range deployments {
				if strings.HasPrefix(ref.Name, d.Name+"-") {
					matched = append(matched, pod)
					break
				}
			}
		}
	}
	return matched
}

func podsByName(pods []corev1.Pod, operator string) []corev1.Pod {
	needle := strings.ToLower(operator)
	var matched []corev1.Pod
	for _, pod := range pods {
		if strings.Contains(strings.ToLower(pod.Name), needle) {
			matched = append(matched, pod)
		}
	}
	return matched
}

func summarizePods(pods []corev1.Pod) []PodSummary {
	result := make([]PodSummary, 0, len(pods))
	for _, pod := range pods {
		result = append(result, SummarizePod(&pod))
	}
	return result
}

// SummarizePod flattens a pod into the serialized view used across
// resolution, capability, and health responses.
func SummarizePod(pod *corev1.Pod) PodSummary {
	summary := PodSummary{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Node:      pod.Spec.NodeName,
		Created:   pod.CreationTimestamp.UTC().Format(time.RFC3339),
	}
	ready := 0
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
		summary.Restarts += cs.RestartCount
	}
	summary.Ready = fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers))
	for _, c := range pod.Spec.Containers {
		summary.Containers = append(summary.Containers, c.Name)
	}
	return summary
}

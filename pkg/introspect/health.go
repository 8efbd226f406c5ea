package introspect

import (
	"context"
	"strings"
	"sync"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

// Health aggregates operator state, workload state, and recent errors into
// one snapshot per capability domain.
type Health struct {
	client     *k8s.Client
	discoverer *Discoverer
	classifier *Classifier
	searcher   *Searcher
}

// NewHealth returns a health aggregator backed by the given cluster client.
func NewHealth(client *k8s.Client) *Health {
	return &Health{
		client:     client,
		discoverer: NewDiscoverer(client),
		classifier: NewClassifier(client),
		searcher:   NewSearcher(client),
	}
}

// Diagnostic pod name fragments per domain. The GPU operator deploys its
// driver and device plugin as daemonsets with these name stems; the network
// operator does the same for the OFED driver and RDMA device plugin.
var domainComponents = map[string][]string{
	"gpu": {"nvidia-driver", "device-plugin", "dcgm", "toolkit"},
	"dpu": {"ofed", "rdma", "sriov"},
}

// AssessHealth builds the health snapshot for one capability domain. The
// operator, workload, and error facets are collected concurrently; a facet
// that fails leaves its zero value in the snapshot rather than failing the
// assessment.
//
// The snapshot degrades when the operator is installed but not in phase
// Succeeded, when any workload pod is off Running, or when recent error
// hits exist. A domain with no operator, no workloads, and no recent error
// hits reports unknown.
func (h *Health) AssessHealth(ctx context.Context, taxonomy Taxonomy, namespace string) (*HealthSnapshot, error) {
	if !h.client.Available() {
		return nil, k8s.ErrUnavailable
	}

	snapshot := &HealthSnapshot{
		Domain:      taxonomy.Domain,
		Diagnostics: map[string]any{},
	}

	var (
		wg        sync.WaitGroup
		operators []OperatorInfo
		workloads []PodSummary
		errHits   []SearchHit
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if ops, err := h.discoverer.DiscoverOperators(ctx, "all"); err == nil {
			operators = FilterByTaxonomy(ops, taxonomy)
		}
	}()
	go func() {
		defer wg.Done()
		workloads, _ = h.classifier.CapabilityWorkloads(ctx, taxonomy, namespace)
	}()
	go func() {
		defer wg.Done()
		result, err := h.searcher.Search(ctx, "error", namespace, SearchOptions{
			MaxPods:   10,
			MaxEvents: 50,
			Sources:   []string{SourcePodLogs, SourceEvents},
		})
		if err == nil {
			errHits = filterHitsByTaxonomy(result.Hits, taxonomy)
		}
	}()
	wg.Wait()

	if len(operators) > 0 {
		snapshot.OperatorInstalled = true
		for _, op := range operators {
			if op.Phase == "Succeeded" {
				snapshot.OperatorHealthy = true
			}
			if snapshot.OperatorPhase == "" || op.Phase == "Succeeded" {
				snapshot.OperatorPhase = op.Phase
			}
		}
	}

	snapshot.PodsTotal = len(workloads)
	for _, pod := range workloads {
		if pod.Phase == "Running" {
			snapshot.PodsRunning++
		} else {
			snapshot.ProblemPods = append(snapshot.ProblemPods, pod)
		}
	}
	snapshot.RecentErrors = errHits
	snapshot.Diagnostics = h.componentDiagnostics(taxonomy.Domain, workloads)
	snapshot.HealthStatus = assessStatus(snapshot)
	return snapshot, nil
}

// componentDiagnostics reports, per known domain component, whether a pod
// carrying its name stem is running.
func (h *Health) componentDiagnostics(domain string, workloads []PodSummary) map[string]any {
	diagnostics := map[string]any{}
	for _, component := range domainComponents[domain] {
		status := "missing"
		for _, pod := range workloads {
			if !strings.Contains(strings.ToLower(pod.Name), component) {
				continue
			}
			if pod.Phase == "Running" {
				status = "running"
				break
			}
			status = pod.Phase
		}
		diagnostics[component] = status
	}
	return diagnostics
}

func filterHitsByTaxonomy(hits []SearchHit, taxonomy Taxonomy) []SearchHit {
	var matched []SearchHit
	for _, hit := range hits {
		if taxonomy.MatchesAny(hit.Object, hit.Namespace) {
			matched = append(matched, hit)
			continue
		}
		for _, line := range hit.Lines {
			if taxonomy.Matches(line) {
				matched = append(matched, hit)
				break
			}
		}
	}
	return matched
}

func assessStatus(s *HealthSnapshot) string {
	if s.OperatorInstalled && !s.OperatorHealthy {
		return HealthDegraded
	}
	if len(s.ProblemPods) > 0 || len(s.RecentErrors) > 0 {
		return HealthDegraded
	}
	if !s.OperatorInstalled && s.PodsTotal == 0 {
		return HealthUnknown
	}
	return HealthHealthy
}

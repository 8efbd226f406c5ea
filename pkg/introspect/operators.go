package introspect

import (
	"context"
	"sort"
	"strings"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

// Discoverer enumerates operators across install mechanisms.
type Discoverer struct {
	client *k8s.Client
}

// NewDiscoverer returns a discoverer backed by the given cluster client.
func NewDiscoverer(client *k8s.Client) *Discoverer {
	return &Discoverer{client: client}
}

// DiscoverOperators lists operators from OLM, Helm, and bare manifests in
// one pass. A source that fails to list drops out of the result instead of
// failing the whole discovery; only a fully unavailable cluster is an error.
// Results are sorted by type, namespace, then name for stable output.
func (d *Discoverer) DiscoverOperators(ctx context.Context, namespace string) ([]OperatorInfo, error) {
	if !d.client.Available() {
		return nil, k8s.ErrUnavailable
	}

	var operators []OperatorInfo
	seen := map[string]bool{}

	// OLM-managed operators carry full metadata on the CSV.
	if csvs, err := d.client.ListCSVs(ctx, namespace); err == nil {
		subsByCSV := d.subscriptionIndex(ctx, namespace)
		for _, c := range csvs {
			op := OperatorInfo{
				Name:        c.Name,
				Namespace:   c.Namespace,
				Type:        SourceOLM,
				DisplayName: c.DisplayName,
				Version:     c.Version,
				Phase:       c.Phase,
			}
			if sub, ok := subsByCSV[c.Name]; ok {
				op.Channel = sub.Channel
				op.Source = sub.Source
			}
			operators = append(operators, op)
			seen[c.Namespace+"/"+operatorStem(c.Name)] = true
		}
	}

	// Helm chart repositories registered with the cluster. Missing API
	// (plain Kubernetes) just skips the source.
	if repos, err := d.client.ListHelmRepositories(ctx); err == nil {
		for _, repo := range repos {
			operators = append(operators, OperatorInfo{
				Name: repo.Name,
				Type: SourceHelm,
				URL:  repo.URL,
			})
			seen["/"+operatorStem(repo.Name)] = true
		}
	}

	// Helm and raw-manifest operators only show up as deployments.
	deployments, err := d.client.ListDeployments(ctx, namespace)
	if err == nil {
		for _, dep := range deployments {
			if !looksLikeOperator(dep.Name, dep.Labels) {
				continue
			}
			if seen[dep.Namespace+"/"+operatorStem(dep.Name)] {
				continue
			}
			op := OperatorInfo{
				Name:      dep.Name,
				Namespace: dep.Namespace,
				Type:      SourceCustom,
			}
			if dep.Labels["app.kubernetes.io/managed-by"] == "Helm" {
				op.Type = SourceHelm
				op.Version = dep.Labels["app.kubernetes.io/version"]
			}
			operators = append(operators, op)
			seen[dep.Namespace+"/"+operatorStem(dep.Name)] = true
		}
	}

	sort.Slice(operators, func(i, j int) bool {
		a, b := operators[i], operators[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})
	return operators, nil
}

// subscriptionIndex maps installed CSV names to their subscription, giving
// OLM operators their channel and catalog source. Failure yields an empty
// index, not an error.
func (d *Discoverer) subscriptionIndex(ctx context.Context, namespace string) map[string]k8s.SubscriptionInfo {
	index := map[string]k8s.SubscriptionInfo{}
	subs, err := d.client.ListSubscriptions(ctx, namespace)
	if err != nil {
		return index
	}
	for _, s := range subs {
		if s.InstalledCSV != "" {
			index[s.InstalledCSV] = s
		}
	}
	return index
}

// looksLikeOperator reports whether a deployment is operator-shaped: its
// name carries "operator" or "controller", or it is labeled as an operator
// component.
func looksLikeOperator(name string, labels map[string]string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "operator") || strings.Contains(lower, "controller") {
		return true
	}
	return labels["app.kubernetes.io/component"] == "operator"
}

// operatorStem strips the ".vX.Y.Z" suffix a CSV name carries so the same
// operator is not reported twice when its deployment shares the base name.
func operatorStem(name string) string {
	if i := strings.Index(name, ".v"); i > 0 {
		return name[:i]
	}
	return name
}

// FilterByTaxonomy keeps operators whose name or display name matches the
// taxonomy keyword set.
func FilterByTaxonomy(operators []OperatorInfo, taxonomy Taxonomy) []OperatorInfo {
	var matched []OperatorInfo
	for _, op := range operators {
		if taxonomy.MatchesAny(op.Name, op.DisplayName, op.Namespace) {
			matched = append(matched, op)
		}
	}
	return matched
}

package tools

import (
	"context"
	"fmt"

	"github.com/AdamKaabyia/oc-mcp/pkg/introspect"
	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
	"github.com/AdamKaabyia/oc-mcp/pkg/metrics"
	"github.com/AdamKaabyia/oc-mcp/pkg/ocm"
)

// Catalog wires the introspection components into the tool registry.
type Catalog struct {
	client     *k8s.Client
	ocm        *ocm.Client
	taxonomies map[string]introspect.Taxonomy
	resolver   *introspect.Resolver
	discoverer *introspect.Discoverer
	classifier *introspect.Classifier
	searcher   *introspect.Searcher
	health     *introspect.Health
	collector  *introspect.Collector
}

// NewCatalog builds the catalog and registers every tool on the registry.
func NewCatalog(registry *Registry, client *k8s.Client, ocmClient *ocm.Client, taxonomies map[string]introspect.Taxonomy) *Catalog {
	c := &Catalog{
		client:     client,
		ocm:        ocmClient,
		taxonomies: taxonomies,
		resolver:   introspect.NewResolver(client),
		discoverer: introspect.NewDiscoverer(client),
		classifier: introspect.NewClassifier(client),
		searcher:   introspect.NewSearcher(client),
		health:     introspect.NewHealth(client),
		collector:  introspect.NewCollector(client),
	}
	c.register(registry)
	return c
}

func (c *Catalog) taxonomy(domain string) introspect.Taxonomy {
	if t, ok := c.taxonomies[domain]; ok {
		return t
	}
	if domain == "dpu" {
		return introspect.DPUTaxonomy
	}
	return introspect.GPUTaxonomy
}

func (c *Catalog) register(r *Registry) {
	r.Register(Tool{
		Name:        "get_cluster_info",
		Description: "Cluster version, node count, and API availability.",
		Handler:     c.getClusterInfo,
	})
	r.Register(Tool{
		Name:        "get_projects",
		Description: "List OpenShift projects with display names and quotas.",
		Handler:     c.getProjects,
	})
	r.Register(Tool{
		Name:        "get_all_operators",
		Description: "List operators from OLM, Helm, and raw manifests.",
		Handler:     c.getAllOperators,
	})
	r.Register(Tool{
		Name:        "get_operator_pods",
		Description: "Resolve an operator to its running pods via the OLM ownership chain.",
		Handler:     c.getOperatorPods,
	})
	r.Register(Tool{
		Name:        "get_comprehensive_logs",
		Description: "Pod logs, events, and build logs for one operator.",
		Handler:     c.getComprehensiveLogs,
	})
	r.Register(Tool{
		Name:        "search_all_logs",
		Description: "Search pod logs, events, and build logs for a pattern.",
		Handler:     c.searchAllLogs,
	})
	r.Register(Tool{
		Name:        "get_openshift_resources",
		Description: "List OpenShift resources by type: routes, imagestreams, builds, services, configmaps, secrets, quotas, crds, subscriptions, csvs, helmrepos.",
		Handler:     c.getOpenShiftResources,
	})
	r.Register(Tool{
		Name:        "get_nvidia_operators",
		Description: "List GPU-related operators.",
		Handler:     c.getNvidiaOperators,
	})
	r.Register(Tool{
		Name:        "get_gpu_nodes",
		Description: "List nodes with GPU labels or GPU capacity.",
		Handler:     c.capabilityNodes("gpu"),
	})
	r.Register(Tool{
		Name:        "get_gpu_workloads",
		Description: "List GPU-related pods.",
		Handler:     c.capabilityWorkloads("gpu"),
	})
	r.Register(Tool{
		Name:        "get_gpu_operator_health",
		Description: "Aggregate GPU operator and workload health.",
		Handler:     c.capabilityHealth("gpu"),
	})
	r.Register(Tool{
		Name:        "search_gpu_logs",
		Description: "Search logs and events restricted to GPU components.",
		Handler:     c.capabilitySearch("gpu"),
	})
	r.Register(Tool{
		Name:        "get_dpu_nodes",
		Description: "List nodes with DPU or SmartNIC hardware.",
		Handler:     c.capabilityNodes("dpu"),
	})
	r.Register(Tool{
		Name:        "get_dpu_workloads",
		Description: "List DPU-related pods.",
		Handler:     c.capabilityWorkloads("dpu"),
	})
	r.Register(Tool{
		Name:        "get_dpu_health",
		Description: "Aggregate DPU operator and workload health.",
		Handler:     c.capabilityHealth("dpu"),
	})
	r.Register(Tool{
		Name:        "search_dpu_logs",
		Description: "Search logs and events restricted to DPU components.",
		Handler:     c.capabilitySearch("dpu"),
	})
	r.Register(Tool{
		Name:        "ocm_get_clusters",
		Description: "List managed clusters from OpenShift Cluster Manager.",
		Handler:     c.ocmGetClusters,
	})
	r.Register(Tool{
		Name:        "ocm_get_cluster_logs",
		Description: "Service logs for one managed cluster.",
		Handler:     c.ocmGetClusterLogs,
	})
}

func (c *Catalog) getClusterInfo(ctx context.Context, args Args) (any, error) {
	info := map[string]any{
		"available": c.client.Available(),
	}
	if !c.client.Available() {
		metrics.ClusterAvailable.Set(0)
		return info, nil
	}
	metrics.ClusterAvailable.Set(1)

	if version, err := c.client.GetClusterVersion(ctx); err == nil && version != nil {
		info["version"] = version.Version
		info["cluster_id"] = version.ClusterID
		info["channel"] = version.Channel
	}
	if nodes, err := c.client.ListNodes(ctx); err == nil {
		info["node_count"] = len(nodes)
	}
	if pods, err := c.client.ListPods(ctx, "all"); err == nil {
		info["pod_count"] = len(pods)
	}
	return info, nil
}

func (c *Catalog) getProjects(ctx context.Context, args Args) (any, error) {
	return c.client.ListProjects(ctx)
}

func (c *Catalog) getAllOperators(ctx context.Context, args Args) (any, error) {
	namespace := args.String("namespace", "all")
	return c.discoverer.DiscoverOperators(ctx, namespace)
}

func (c *Catalog) getOperatorPods(ctx context.Context, args Args) (any, error) {
	operator := args.String("operator", "")
	namespace := args.String("namespace", "all")
	return c.resolver.Resolve(ctx, operator, namespace)
}

func (c *Catalog) getComprehensiveLogs(ctx context.Context, args Args) (any, error) {
	operator := args.String("operator", "")
	if operator == "" {
		return nil, fmt.Errorf("operator argument is required")
	}
	namespace := args.String("namespace", "all")
	return c.collector.ComprehensiveLogs(ctx, operator, namespace)
}

func (c *Catalog) searchAllLogs(ctx context.Context, args Args) (any, error) {
	pattern := args.String("pattern", "")
	namespace := args.String("namespace", "all")
	result, err := c.searcher.Search(ctx, pattern, namespace, c.searchOptions(args))
	if err != nil {
		return nil, err
	}
	countSearchHits(result)
	return result, nil
}

func (c *Catalog) searchOptions(args Args) introspect.SearchOptions {
	return introspect.SearchOptions{
		MaxPods:   args.Int("max_pods", 0),
		MaxEvents: args.Int("max_events", 0),
		MaxBuilds: args.Int("max_builds", 0),
		TailLines: int64(args.Int("tail_lines", 0)),
	}
}

func (c *Catalog) getOpenShiftResources(ctx context.Context, args Args) (any, error) {
	resourceType := args.String("resource_type", "")
	namespace := args.String("namespace", "all")

	switch resourceType {
	case "routes":
		return c.client.ListRoutes(ctx, namespace)
	case "imagestreams":
		return c.client.ListImageStreams(ctx, namespace)
	case "builds":
		return c.client.ListBuilds(ctx, namespace)
	case "services":
		return c.client.ListServices(ctx, namespace)
	case "configmaps":
		return c.client.ListConfigMaps(ctx, namespace)
	case "secrets":
		return c.client.ListSecrets(ctx, namespace)
	case "quotas":
		return c.client.ListNamespaceQuotas(ctx, namespace)
	case "crds":
		return c.client.ListCRDs(ctx)
	case "subscriptions":
		return c.client.ListSubscriptions(ctx, namespace)
	case "csvs":
		return c.client.ListCSVs(ctx, namespace)
	case "helmrepos":
		return c.client.ListHelmRepositories(ctx)
	case "":
		return nil, fmt.Errorf("resource_type argument is required")
	default:
		return nil, fmt.Errorf("unknown resource_type %q", resourceType)
	}
}

func (c *Catalog) getNvidiaOperators(ctx context.Context, args Args) (any, error) {
	operators, err := c.discoverer.DiscoverOperators(ctx, args.String("namespace", "all"))
	if err != nil {
		return nil, err
	}
	filtered := introspect.FilterByTaxonomy(operators, c.taxonomy("gpu"))
	if filtered == nil {
		filtered = []introspect.OperatorInfo{}
	}
	return filtered, nil
}

func (c *Catalog) capabilityNodes(domain string) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		return c.classifier.CapabilityNodes(ctx, c.taxonomy(domain))
	}
}

func (c *Catalog) capabilityWorkloads(domain string) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		return c.classifier.CapabilityWorkloads(ctx, c.taxonomy(domain), args.String("namespace", "all"))
	}
}

func (c *Catalog) capabilityHealth(domain string) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		return c.health.AssessHealth(ctx, c.taxonomy(domain), args.String("namespace", "all"))
	}
}

func (c *Catalog) capabilitySearch(domain string) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		pattern := args.String("pattern", "")
		namespace := args.String("namespace", "all")
		result, err := c.searcher.SearchCapability(ctx, c.taxonomy(domain), pattern, namespace, c.searchOptions(args))
		if err != nil {
			return nil, err
		}
		countSearchHits(result)
		return result, nil
	}
}

func (c *Catalog) ocmGetClusters(ctx context.Context, args Args) (any, error) {
	return c.ocm.ListClusters(ctx)
}

func (c *Catalog) ocmGetClusterLogs(ctx context.Context, args Args) (any, error) {
	return c.ocm.ListServiceLogs(ctx, args.String("cluster_id", ""))
}

func countSearchHits(result *introspect.SearchResult) {
	for _, hit := range result.Hits {
		metrics.SearchHits.WithLabelValues(hit.Source).Inc()
	}
}

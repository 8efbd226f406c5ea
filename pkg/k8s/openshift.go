package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// GVRs for the OpenShift resources the gateway reads
var (
	gvrProjects = schema.GroupVersionResource{
		Group: "project.openshift.io", Version: "v1", Resource: "projects",
	}
	gvrRoutes = schema.GroupVersionResource{
		Group: "route.openshift.io", Version: "v1", Resource: "routes",
	}
	gvrImageStreams = schema.GroupVersionResource{
		Group: "image.openshift.io", Version: "v1", Resource: "imagestreams",
	}
	gvrSubscriptions = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "subscriptions",
	}
	gvrCSVs = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "clusterserviceversions",
	}
	gvrHelmChartRepos = schema.GroupVersionResource{
		Group: "helm.openshift.io", Version: "v1beta1", Resource: "helmchartrepositories",
	}
	gvrBuilds = schema.GroupVersionResource{
		Group: "build.openshift.io", Version: "v1", Resource: "builds",
	}
	gvrClusterVersions = schema.GroupVersionResource{
		Group: "config.openshift.io", Version: "v1", Resource: "clusterversions",
	}
)

// ProjectInfo is the serializable summary of an OpenShift project
type ProjectInfo struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name,omitempty"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status,omitempty"`
	Created     string      `json:"created,omitempty"`
	Quotas      []QuotaInfo `json:"quotas,omitempty"`
}

// RouteInfo is the serializable summary of an OpenShift route
type RouteInfo struct {
	Name          string `json:"name"`
	Namespace     string `json:"namespace"`
	Host          string `json:"host,omitempty"`
	Path          string `json:"path,omitempty"`
	TargetService string `json:"target_service,omitempty"`
	TLS           bool   `json:"tls"`
	Created       string `json:"created,omitempty"`
}

// ImageStreamInfo is the serializable summary of an image stream
type ImageStreamInfo struct {
	Name       string   `json:"name"`
	Namespace  string   `json:"namespace"`
	Repository string   `json:"repository,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Created    string   `json:"created,omitempty"`
}

// SubscriptionInfo describes an OLM subscription
type SubscriptionInfo struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	Package         string `json:"package,omitempty"`
	Channel         string `json:"channel,omitempty"`
	Source          string `json:"source,omitempty"`
	SourceNamespace string `json:"source_namespace,omitempty"`
	InstalledCSV    string `json:"installed_csv,omitempty"`
	Created         string `json:"created,omitempty"`
}

// OwnedResource is a custom resource kind owned by a CSV
type OwnedResource struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// CSVInfo describes a ClusterServiceVersion, the OLM controller identity
// that owns an operator's workloads.
type CSVInfo struct {
	Name        string          `json:"name"`
	Namespace   string          `json:"namespace"`
	DisplayName string          `json:"display_name,omitempty"`
	Version     string          `json:"version,omitempty"`
	Description string          `json:"description,omitempty"`
	Phase       string          `json:"phase,omitempty"`
	Owned       []OwnedResource `json:"owned_resources,omitempty"`
}

// HelmRepoInfo describes a Helm chart repository
type HelmRepoInfo struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Created string `json:"created,omitempty"`
}

// BuildInfo describes an OpenShift build
type BuildInfo struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase,omitempty"`
	Created   string `json:"created,omitempty"`
}

// ClusterVersionInfo describes the cluster version object
type ClusterVersionInfo struct {
	Version   string `json:"version,omitempty"`
	ClusterID string `json:"cluster_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

func (c *Client) listDynamic(ctx context.Context, gvr schema.GroupVersionResource, namespace string) ([]unstructured.Unstructured, error) {
	dyn, err := c.Dynamic()
	if err != nil {
		return nil, err
	}

	var list *unstructured.UnstructuredList
	if ns := namespaceScope(namespace); ns == metav1.NamespaceAll {
		list, err = dyn.Resource(gvr).List(ctx, metav1.ListOptions{})
	} else {
		list, err = dyn.Resource(gvr).Namespace(ns).List(ctx, metav1.ListOptions{})
	}
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListProjects lists OpenShift projects with their resource quotas.
// Quota lookup failures degrade to an empty quota list per project.
func (c *Client) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	items, err := c.listDynamic(ctx, gvrProjects, "all")
	if err != nil {
		return nil, err
	}

	result := make([]ProjectInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		annotations := item.GetAnnotations()
		info := ProjectInfo{
			Name:        item.GetName(),
			DisplayName: annotations["openshift.io/display-name"],
			Description: annotations["openshift.io/description"],
			Created:     formatTimestamp(item.GetCreationTimestamp().Time),
		}
		if phase, found, _ := unstructured.NestedString(item.Object, "status", "phase"); found {
			info.Status = phase
		}
		if quotas, err := c.ListNamespaceQuotas(ctx, item.GetName()); err == nil {
			info.Quotas = quotas
		}
		result = append(result, info)
	}
	return result, nil
}

// ListRoutes lists route summaries in scope.
func (c *Client) ListRoutes(ctx context.Context, namespace string) ([]RouteInfo, error) {
	items, err := c.listDynamic(ctx, gvrRoutes, namespace)
	if err != nil {
		return nil, err
	}

	result := make([]RouteInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		info := RouteInfo{
			Name:      item.GetName(),
			Namespace: item.GetNamespace(),
			Path:      "/",
			Created:   formatTimestamp(item.GetCreationTimestamp().Time),
		}
		if host, found, _ := unstructured.NestedString(item.Object, "spec", "host"); found {
			info.Host = host
		}
		if path, found, _ := unstructured.NestedString(item.Object, "spec", "path"); found {
			info.Path = path
		}
		if target, found, _ := unstructured.NestedString(item.Object, "spec", "to", "name"); found {
			info.TargetService = target
		}
		if tls, found, _ := unstructured.NestedMap(item.Object, "spec", "tls"); found && len(tls) > 0 {
			info.TLS = true
		}
		result = append(result, info)
	}
	return result, nil
}

// ListImageStreams lists image stream summaries in scope.
func (c *Client) ListImageStreams(ctx context.Context, namespace string) ([]ImageStreamInfo, error) {
	items, err := c.listDynamic(ctx, gvrImageStreams, namespace)
	if err != nil {
		return nil, err
	}

	result := make([]ImageStreamInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		info := ImageStreamInfo{
			Name:      item.GetName(),
			Namespace: item.GetNamespace(),
			Created:   formatTimestamp(item.GetCreationTimestamp().Time),
		}
		if repo, found, _ := unstructured.NestedString(item.Object, "status", "dockerImageRepository"); found {
			info.Repository = repo
		}
		if tags, found, _ := unstructured.NestedSlice(item.Object, "status", "tags"); found {
			for _, t := range tags {
				if tagMap, ok := t.(map[string]interface{}); ok {
					if name, ok := tagMap["tag"].(string); ok {
						info.Tags = append(info.Tags, name)
					}
				}
			}
		}
		result = append(result, info)
	}
	return result, nil
}

// ListSubscriptions lists OLM subscriptions in scope.
func (c *Client) ListSubscriptions(ctx context.Context, namespace string) ([]SubscriptionInfo, error) {
	items, err := c.listDynamic(ctx, gvrSubscriptions, namespace)
	if err != nil {
		return nil, err
	}

	result := make([]SubscriptionInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		info := SubscriptionInfo{
			Name:      item.GetName(),
			Namespace: item.GetNamespace(),
			Created:   formatTimestamp(item.GetCreationTimestamp().Time),
		}
		info.Package, _, _ = unstructured.NestedString(item.Object, "spec", "name")
		info.Channel, _, _ = unstructured.NestedString(item.Object, "spec", "channel")
		info.Source, _, _ = unstructured.NestedString(item.Object, "spec", "source")
		info.SourceNamespace, _, _ = unstructured.NestedString(item.Object, "spec", "sourceNamespace")
		info.InstalledCSV, _, _ = unstructured.NestedString(item.Object, "status", "currentCSV")
		result = append(result, info)
	}
	return result, nil
}

// ListCSVs lists ClusterServiceVersions in scope.
func (c *Client) ListCSVs(ctx context.Context, namespace string) ([]CSVInfo, error) {
	items, err := c.listDynamic(ctx, gvrCSVs, namespace)
	if err != nil {
		return nil, err
	}

	result := make([]CSVInfo, 0, len(items))
	for i := range items {
		result = append(result, parseCSV(&items[i]))
	}
	return result, nil
}

// GetCSV fetches a single ClusterServiceVersion by name.
func (c *Client) GetCSV(ctx context.Context, namespace, name string) (*CSVInfo, error) {
	dyn, err := c.Dynamic()
	if err != nil {
		return nil, err
	}
	item, err := dyn.Resource(gvrCSVs).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	info := parseCSV(item)
	return &info, nil
}

func parseCSV(item *unstructured.Unstructured) CSVInfo {
	info := CSVInfo{
		Name:      item.GetName(),
		Namespace: item.GetNamespace(),
	}
	info.DisplayName, _, _ = unstructured.NestedString(item.Object, "spec", "displayName")
	info.Version, _, _ = unstructured.NestedString(item.Object, "spec", "version")
	info.Description, _, _ = unstructured.NestedString(item.Object, "spec", "description")
	info.Phase, _, _ = unstructured.NestedString(item.Object, "status", "phase")

	if owned, found, _ := unstructured.NestedSlice(item.Object, "spec", "customresourcedefinitions", "owned"); found {
		for _, o := range owned {
			if oMap, ok := o.(map[string]interface{}); ok {
				res := OwnedResource{}
				res.Kind, _ = oMap["kind"].(string)
				res.Name, _ = oMap["name"].(string)
				info.Owned = append(info.Owned, res)
			}
		}
	}
	return info
}

// ListHelmRepositories lists cluster-scoped Helm chart repositories.
func (c *Client) ListHelmRepositories(ctx context.Context) ([]HelmRepoInfo, error) {
	items, err := c.listDynamic(ctx, gvrHelmChartRepos, "all")
	if err != nil {
		return nil, err
	}

	result := make([]HelmRepoInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		info := HelmRepoInfo{
			Name:    item.GetName(),
			Created: formatTimestamp(item.GetCreationTimestamp().Time),
		}
		info.URL, _, _ = unstructured.NestedString(item.Object, "spec", "connectionConfig", "url")
		result = append(result, info)
	}
	return result, nil
}

// ListBuilds lists build summaries in scope.
func (c *Client) ListBuilds(ctx context.Context, namespace string) ([]BuildInfo, error) {
	items, err := c.listDynamic(ctx, gvrBuilds, namespace)
	if err != nil {
		return nil, err
	}

	result := make([]BuildInfo, 0, len(items))
	for i := range items {
		item := &items[i]
		info := BuildInfo{
			Name:      item.GetName(),
			Namespace: item.GetNamespace(),
			Created:   formatTimestamp(item.GetCreationTimestamp().Time),
		}
		info.Phase, _, _ = unstructured.NestedString(item.Object, "status", "phase")
		result = append(result, info)
	}
	return result, nil
}

// GetBuildLog returns the log text of a build.
func (c *Client) GetBuildLog(ctx context.Context, namespace, name string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	return c.getBuildLog(ctx, namespace, name)
}

// fetchBuildLog issues a raw GET against the build log subresource, which the
// dynamic client cannot address.
func (c *Client) fetchBuildLog(ctx context.Context, namespace, name string) (string, error) {
	client, err := c.Typed()
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("/apis/build.openshift.io/v1/namespaces/%s/builds/%s/log", namespace, name)
	raw, err := client.Discovery().RESTClient().Get().AbsPath(path).DoRaw(ctx)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetClusterVersion returns version, cluster id, and update channel. Missing
// ClusterVersion (plain Kubernetes) is reported as not found, not a failure.
func (c *Client) GetClusterVersion(ctx context.Context) (*ClusterVersionInfo, error) {
	items, err := c.listDynamic(ctx, gvrClusterVersions, "all")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	item := &items[0]
	info := &ClusterVersionInfo{}
	info.Version, _, _ = unstructured.NestedString(item.Object, "status", "desired", "version")
	info.ClusterID, _, _ = unstructured.NestedString(item.Object, "spec", "clusterID")
	info.Channel, _, _ = unstructured.NestedString(item.Object, "spec", "channel")
	return info, nil
}

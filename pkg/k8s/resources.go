package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// namespaceScope maps the tool-facing "all" scope to the API's all-namespaces
// selector.
func namespaceScope(namespace string) string {
	if namespace == "" || namespace == "all" {
		return metav1.NamespaceAll
	}
	return namespace
}

// ServiceInfo is the serializable summary of a Service
type ServiceInfo struct {
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Type      string            `json:"type"`
	ClusterIP string            `json:"cluster_ip,omitempty"`
	Ports     []string          `json:"ports,omitempty"`
	Selector  map[string]string `json:"selector,omitempty"`
	Created   string            `json:"created,omitempty"`
}

// ConfigMapInfo is the serializable summary of a ConfigMap
type ConfigMapInfo struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	DataKeys  []string `json:"data_keys"`
	Created   string   `json:"created,omitempty"`
}

// SecretInfo is the serializable summary of a Secret. Values are never
// included, only key names.
type SecretInfo struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace"`
	Type      string   `json:"type"`
	DataKeys  []string `json:"data_keys"`
	Created   string   `json:"created,omitempty"`
}

// QuotaInfo is the serializable summary of a ResourceQuota
type QuotaInfo struct {
	Name string            `json:"name"`
	Hard map[string]string `json:"hard,omitempty"`
	Used map[string]string `json:"used,omitempty"`
}

// CRDInfo is the serializable summary of a CustomResourceDefinition
type CRDInfo struct {
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Kind    string   `json:"kind"`
	Scope   string   `json:"scope"`
	Served  []string `json:"served_versions,omitempty"`
	Created string   `json:"created,omitempty"`
}

// ListPods lists pods in the given namespace, or cluster-wide for "all".
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	pods, err := client.CoreV1().Pods(namespaceScope(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return pods.Items, nil
}

// ListDeployments lists deployments in the given namespace, or cluster-wide
// for "all".
func (c *Client) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	deps, err := client.AppsV1().Deployments(namespaceScope(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return deps.Items, nil
}

// ListNodes lists all nodes in the cluster.
func (c *Client) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return nodes.Items, nil
}

// ListEvents lists events in scope, bounded by limit.
func (c *Client) ListEvents(ctx context.Context, namespace string, limit int64) ([]corev1.Event, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	opts := metav1.ListOptions{}
	if limit > 0 {
		opts.Limit = limit
	}
	events, err := client.CoreV1().Events(namespaceScope(namespace)).List(ctx, opts)
	if err != nil {
		return nil, err
	}
	items := events.Items
	// The fake clientset ignores Limit; enforce it here so behavior is
	// uniform.
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}

// GetPodLogs returns the last tailLines lines of a pod's log.
func (c *Client) GetPodLogs(ctx context.Context, namespace, name string, tailLines int64) (string, error) {
	client, err := c.Typed()
	if err != nil {
		return "", err
	}

	opts := &corev1.PodLogOptions{}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	req := client.CoreV1().Pods(namespace).GetLogs(name, opts)
	logs, err := req.DoRaw(ctx)
	if err != nil {
		return "", err
	}
	return string(logs), nil
}

// ListServices lists service summaries in scope.
func (c *Client) ListServices(ctx context.Context, namespace string) ([]ServiceInfo, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	services, err := client.CoreV1().Services(namespaceScope(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]ServiceInfo, 0, len(services.Items))
	for _, svc := range services.Items {
		info := ServiceInfo{
			Name:      svc.Name,
			Namespace: svc.Namespace,
			Type:      string(svc.Spec.Type),
			ClusterIP: svc.Spec.ClusterIP,
			Selector:  svc.Spec.Selector,
			Created:   formatTimestamp(svc.CreationTimestamp.Time),
		}
		for _, p := range svc.Spec.Ports {
			info.Ports = append(info.Ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
		}
		result = append(result, info)
	}
	return result, nil
}

// ListConfigMaps lists configmap summaries in scope.
func (c *Client) ListConfigMaps(ctx context.Context, namespace string) ([]ConfigMapInfo, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	cms, err := client.CoreV1().ConfigMaps(namespaceScope(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]ConfigMapInfo, 0, len(cms.Items))
	for _, cm := range cms.Items {
		info := ConfigMapInfo{
			Name:      cm.Name,
			Namespace: cm.Namespace,
			DataKeys:  make([]string, 0, len(cm.Data)),
			Created:   formatTimestamp(cm.CreationTimestamp.Time),
		}
		for k := range cm.Data {
			info.DataKeys = append(info.DataKeys, k)
		}
		result = append(result, info)
	}
	return result, nil
}

// ListSecrets lists secret summaries in scope. Only key names are exposed.
func (c *Client) ListSecrets(ctx context.Context, namespace string) ([]SecretInfo, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	secrets, err := client.CoreV1().Secrets(namespaceScope(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]SecretInfo, 0, len(secrets.Items))
	for _, secret := range secrets.Items {
		info := SecretInfo{
			Name:      secret.Name,
			Namespace: secret.Namespace,
			Type:      string(secret.Type),
			DataKeys:  make([]string, 0, len(secret.Data)),
			Created:   formatTimestamp(secret.CreationTimestamp.Time),
		}
		for k := range secret.Data {
			info.DataKeys = append(info.DataKeys, k)
		}
		result = append(result, info)
	}
	return result, nil
}

// ListNamespaceQuotas lists resource quotas for one namespace.
func (c *Client) ListNamespaceQuotas(ctx context.Context, namespace string) ([]QuotaInfo, error) {
	client, err := c.Typed()
	if err != nil {
		return nil, err
	}
	quotas, err := client.CoreV1().ResourceQuotas(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]QuotaInfo, 0, len(quotas.Items))
	for _, q := range quotas.Items {
		info := QuotaInfo{Name: q.Name}
		if len(q.Status.Hard) > 0 {
			info.Hard = make(map[string]string, len(q.Status.Hard))
			for k, v := range q.Status.Hard {
				info.Hard[string(k)] = v.String()
			}
		}
		if len(q.Status.Used) > 0 {
			info.Used = make(map[string]string, len(q.Status.Used))
			for k, v := range q.Status.Used {
				info.Used[string(k)] = v.String()
			}
		}
		result = append(result, info)
	}
	return result, nil
}

// ListCRDs lists custom resource definition summaries.
func (c *Client) ListCRDs(ctx context.Context) ([]CRDInfo, error) {
	c.mu.RLock()
	apiext := c.apiext
	c.mu.RUnlock()
	if apiext == nil {
		return nil, ErrUnavailable
	}

	crds, err := apiext.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	result := make([]CRDInfo, 0, len(crds.Items))
	for _, crd := range crds.Items {
		info := CRDInfo{
			Name:    crd.Name,
			Group:   crd.Spec.Group,
			Kind:    crd.Spec.Names.Kind,
			Scope:   string(crd.Spec.Scope),
			Created: formatTimestamp(crd.CreationTimestamp.Time),
		}
		for _, v := range crd.Spec.Versions {
			if v.Served {
				info.Served = append(info.Served, v.Name)
			}
		}
		result = append(result, info)
	}
	return result, nil
}

// formatTimestamp renders a creation timestamp as RFC3339, empty for zero.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

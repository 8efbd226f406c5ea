// Package ocm talks to the OpenShift Cluster Manager API for managed
// cluster listings and service logs.
package ocm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL  = "https://api.openshift.com"
	defaultTokenURL = "https://sso.redhat.com/auth/realms/redhat-external/protocol/openid-connect/token"
	defaultClientID = "cloud-services"
	requestTimeout  = 30 * time.Second
)

// Cluster is one managed cluster as reported by clusters_mgmt.
type Cluster struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	State         string `json:"state,omitempty"`
	CloudProvider string `json:"cloud_provider,omitempty"`
	Region        string `json:"region,omitempty"`
	Version       string `json:"openshift_version,omitempty"`
	Created       string `json:"creation_timestamp,omitempty"`
}

// ServiceLog is one service log entry for a managed cluster.
type ServiceLog struct {
	ID          string `json:"id"`
	Severity    string `json:"severity,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Client wraps the OCM REST API. A missing offline token leaves the client
// unconfigured; calls then fail with a clear error instead of panicking,
// so a server without OCM credentials still serves cluster-local tools.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL  string
	tokenURL string
	clientID string
	http     *http.Client
}

// WithBaseURL overrides the OCM API base URL.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithTokenURL overrides the SSO token endpoint.
func WithTokenURL(u string) Option {
	return func(c *clientConfig) { c.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client, bypassing token exchange.
// Intended for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *clientConfig) { c.http = h }
}

// NewClient builds an OCM client from an offline token. The token is
// exchanged for access tokens on demand through the standard Red Hat SSO
// refresh grant. An empty token yields a nil client and no error.
func NewClient(ctx context.Context, offlineToken string, opts ...Option) (*Client, error) {
	if offlineToken == "" {
		return nil, nil
	}

	cfg := clientConfig{
		baseURL:  defaultBaseURL,
		tokenURL: defaultTokenURL,
		clientID: defaultClientID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpClient := cfg.http
	if httpClient == nil {
		oauthCfg := &oauth2.Config{
			ClientID: cfg.clientID,
			Endpoint: oauth2.Endpoint{TokenURL: cfg.tokenURL},
		}
		source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: offlineToken})
		httpClient = oauth2.NewClient(ctx, source)
	}
	httpClient.Timeout = requestTimeout

	return &Client{baseURL: cfg.baseURL, http: httpClient}, nil
}

// FromEnv builds a client from the OCM_OFFLINE_TOKEN environment variable.
func FromEnv(ctx context.Context) (*Client, error) {
	return NewClient(ctx, os.Getenv("OCM_OFFLINE_TOKEN"))
}

type clusterList struct {
	Items []Cluster `json:"items"`
	Total int       `json:"total"`
}

type serviceLogList struct {
	Items []ServiceLog `json:"items"`
	Total int          `json:"total"`
}

// ListClusters returns the managed clusters visible to the account.
func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	if c == nil {
		return nil, fmt.Errorf("ocm is not configured, set OCM_OFFLINE_TOKEN")
	}
	var list clusterList
	if err := c.get(ctx, "/api/clusters_mgmt/v1/clusters", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListServiceLogs returns the service log entries for one managed cluster.
func (c *Client) ListServiceLogs(ctx context.Context, clusterID string) ([]ServiceLog, error) {
	if c == nil {
		return nil, fmt.Errorf("ocm is not configured, set OCM_OFFLINE_TOKEN")
	}
	if clusterID == "" {
		return nil, fmt.Errorf("cluster id is required")
	}
	query := url.Values{}
	query.Set("cluster_id", clusterID)
	var list serviceLogList
	if err := c.get(ctx, "/api/service_logs/v1/cluster_logs", query, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ocm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ocm returned %d for %s: %s", resp.StatusCode, path, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

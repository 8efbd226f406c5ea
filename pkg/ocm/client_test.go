package ocm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clusters_mgmt/v1/clusters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"abc123","name":"prod-east","state":"ready","cloud_provider":"aws","region":"us-east-1","openshift_version":"4.17.9"},
			{"id":"def456","name":"staging","state":"installing"}
		],"total":2}`))
	})
	mux.HandleFunc("/api/service_logs/v1/cluster_logs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cluster_id") != "abc123" {
			http.Error(w, `{"items":[],"total":0}`, http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"log-1","severity":"Warning","service_name":"SREManualAction","summary":"Node replaced"}
		],"total":1}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "offline-token",
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return server, client
}

func TestListClusters(t *testing.T) {
	_, client := newTestServer(t)

	clusters, err := client.ListClusters(context.Background())
	if err != nil {
		t.Fatalf("ListClusters: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].ID != "abc123" || clusters[0].Version != "4.17.9" {
		t.Errorf("unexpected cluster: %+v", clusters[0])
	}
}

func TestListServiceLogs(t *testing.T) {
	_, client := newTestServer(t)

	logs, err := client.ListServiceLogs(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ListServiceLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Severity != "Warning" {
		t.Errorf("unexpected service logs: %+v", logs)
	}
}

func TestListServiceLogsRequiresID(t *testing.T) {
	_, client := newTestServer(t)
	if _, err := client.ListServiceLogs(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty cluster id")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client, err := NewClient(context.Background(), "")
	if err != nil {
		t.Fatalf("NewClient with empty token: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client without a token")
	}
	if _, err := client.ListClusters(context.Background()); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}

func TestErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"reason":"token expired"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "offline-token",
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.ListClusters(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamKaabyia/oc-mcp/pkg/api/middleware"
)

func newTestServer(t *testing.T, jwtSecret string) *Server {
	t.Helper()
	dir := t.TempDir()
	server, err := NewServer(Config{
		Port:         0,
		DatabasePath: filepath.Join(dir, "audit.db"),
		JWTSecret:    jwtSecret,
		// Point at a path that does not exist so the test never picks up
		// a developer kubeconfig.
		Kubeconfig: filepath.Join(dir, "no-such-kubeconfig"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { server.Shutdown() })
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := server.App().Test(httptest.NewRequest("GET", "/health", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["cluster_available"])
}

func TestListToolsEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/tools", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Tools, 18)
	for _, tool := range body.Tools {
		assert.NotEmpty(t, tool.Description, "tool %s", tool.Name)
	}
}

func TestCallUnknownTool(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest("POST", "/api/tools/no_such_tool/call", nil)
	resp, err := server.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCallToolClusterUnavailable(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest("POST", "/api/tools/search_all_logs/call",
		strings.NewReader(`{"pattern":"error"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := server.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestCallToolWithoutCluster(t *testing.T) {
	server := newTestServer(t, "")

	// get_cluster_info degrades instead of failing when no cluster exists.
	req := httptest.NewRequest("POST", "/api/tools/get_cluster_info/call", nil)
	resp, err := server.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body.Result["available"])
}

func TestInvocationsRecorded(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest("POST", "/api/tools/get_cluster_info/call", nil)
	_, err := server.App().Test(req, 5000)
	require.NoError(t, err)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/invocations", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Invocations []struct {
			Tool   string `json:"tool"`
			Status string `json:"status"`
		} `json:"invocations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Invocations, 1)
	assert.Equal(t, "get_cluster_info", body.Invocations[0].Tool)
	assert.Equal(t, "ok", body.Invocations[0].Status)
}

func TestJWTProtectedAPI(t *testing.T) {
	server := newTestServer(t, "test-secret")

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/tools", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	token, err := middleware.GenerateToken("test-secret", "tester", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/tools", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = server.App().Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := server.App().Test(httptest.NewRequest("GET", "/metrics", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := server.App().Test(httptest.NewRequest("GET", "/ws", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

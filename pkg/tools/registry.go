// Package tools holds the flat catalog of cluster introspection tools and
// the registry that dispatches calls to them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/AdamKaabyia/oc-mcp/pkg/metrics"
	"github.com/AdamKaabyia/oc-mcp/pkg/models"
	"github.com/AdamKaabyia/oc-mcp/pkg/store"
)

// Args holds the named arguments of one tool call.
type Args map[string]any

// String returns the string argument for key, or fallback when absent.
func (a Args) String(key, fallback string) string {
	if v, ok := a[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Int returns the integer argument for key, or fallback when absent.
// JSON numbers arrive as float64.
func (a Args) Int(key string, fallback int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// Handler executes one tool call.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool is one named operation in the catalog.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Handler     Handler `json:"-"`
}

// Registry is the tool catalog. Registration happens at startup; calls may
// come from any number of request goroutines afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	audit store.Store
}

// NewRegistry creates an empty registry. The audit store may be nil, in
// which case calls are not persisted.
func NewRegistry(audit store.Store) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		audit: audit,
	}
}

// Register adds a tool to the catalog, replacing any previous tool of the
// same name.
func (r *Registry) Register(tool Tool) {
	if tool.Name == "" || tool.Handler == nil {
		panic("tools: registered tool needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Call dispatches one tool call, recording metrics and the audit trail.
func (r *Registry) Call(ctx context.Context, name string, args Args) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	start := time.Now()
	result, err := tool.Handler(ctx, args)
	elapsed := time.Since(start)

	status := models.InvocationOK
	if err != nil {
		status = models.InvocationError
	}
	metrics.ToolInvocations.WithLabelValues(name, status).Inc()
	metrics.ToolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.recordAudit(name, args, status, err, elapsed)

	return result, err
}

func (r *Registry) recordAudit(name string, args Args, status string, callErr error, elapsed time.Duration) {
	if r.audit == nil {
		return
	}
	inv := &models.ToolInvocation{
		Tool:       name,
		Status:     status,
		DurationMS: elapsed.Milliseconds(),
	}
	if len(args) > 0 {
		if raw, err := json.Marshal(args); err == nil {
			inv.Arguments = string(raw)
		}
	}
	if callErr != nil {
		inv.Error = callErr.Error()
	}
	if err := r.audit.RecordInvocation(inv); err != nil {
		log.Printf("audit: failed to record %s invocation: %v", name, err)
	}
}

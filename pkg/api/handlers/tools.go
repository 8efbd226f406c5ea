// Package handlers holds the HTTP handlers for the API server.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
	"github.com/AdamKaabyia/oc-mcp/pkg/store"
	"github.com/AdamKaabyia/oc-mcp/pkg/tools"
)

// ToolHandler serves the tool catalog over HTTP
type ToolHandler struct {
	registry *tools.Registry
	audit    store.Store
	hub      *Hub
}

// NewToolHandler creates a new tool handler. The audit store and hub may be
// nil.
func NewToolHandler(registry *tools.Registry, audit store.Store, hub *Hub) *ToolHandler {
	return &ToolHandler{registry: registry, audit: audit, hub: hub}
}

// ListTools returns the tool catalog
// GET /api/tools
func (h *ToolHandler) ListTools(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"tools": h.registry.List(),
	})
}

// CallTool dispatches one tool call
// POST /api/tools/:name/call
func (h *ToolHandler) CallTool(c *fiber.Ctx) error {
	name := c.Params("name")

	args := tools.Args{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&args); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON arguments",
			})
		}
	}

	result, err := h.registry.Call(c.Context(), name, args)
	if err != nil {
		status := fiber.StatusInternalServerError
		if _, ok := h.registry.Get(name); !ok {
			status = fiber.StatusNotFound
		} else if errors.Is(err, k8s.ErrUnavailable) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"tool":  name,
			"error": err.Error(),
		})
	}

	if h.hub != nil {
		h.hub.BroadcastAll(Message{
			Type: "tool_called",
			Data: fiber.Map{"tool": name},
		})
	}
	return c.JSON(fiber.Map{
		"tool":   name,
		"result": result,
	})
}

// ListInvocations returns recent audit records
// GET /api/invocations
func (h *ToolHandler) ListInvocations(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.JSON(fiber.Map{"invocations": []any{}})
	}

	limit := c.QueryInt("limit", 50)
	tool := c.Query("tool")

	var err error
	var invocations any
	if tool != "" {
		invocations, err = h.audit.ListInvocationsByTool(tool, limit)
	} else {
		invocations, err = h.audit.ListInvocations(limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"invocations": invocations})
}

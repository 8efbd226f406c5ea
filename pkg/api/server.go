// Package api assembles the HTTP server that exposes the tool catalog.
package api

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdamKaabyia/oc-mcp/pkg/api/handlers"
	"github.com/AdamKaabyia/oc-mcp/pkg/api/middleware"
	"github.com/AdamKaabyia/oc-mcp/pkg/introspect"
	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
	"github.com/AdamKaabyia/oc-mcp/pkg/metrics"
	"github.com/AdamKaabyia/oc-mcp/pkg/ocm"
	"github.com/AdamKaabyia/oc-mcp/pkg/store"
	"github.com/AdamKaabyia/oc-mcp/pkg/tools"
)

// Config holds server configuration
type Config struct {
	Port         int
	DatabasePath string
	JWTSecret    string
	TaxonomyPath string
	OCMToken     string
	Kubeconfig   string
}

// Server represents the API server
type Server struct {
	app       *fiber.App
	store     store.Store
	config    Config
	hub       *handlers.Hub
	registry  *tools.Registry
	k8sClient *k8s.Client
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	hub := handlers.NewHub()
	go hub.Run()

	k8sClient, err := k8s.NewClient(cfg.Kubeconfig)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create k8s client: %w", err)
	}
	if k8sClient.Available() {
		log.Println("Kubernetes client initialized successfully")
		metrics.ClusterAvailable.Set(1)
	} else {
		log.Println("No cluster connection, tools will report unavailable")
		metrics.ClusterAvailable.Set(0)
	}
	k8sClient.SetOnReload(func() {
		hub.BroadcastAll(handlers.Message{
			Type: "kubeconfig_changed",
			Data: map[string]string{"message": "Kubeconfig updated"},
		})
	})
	if err := k8sClient.StartWatching(); err != nil {
		log.Printf("Warning: failed to start kubeconfig watcher: %v", err)
	}

	ocmClient, err := ocm.NewClient(context.Background(), cfg.OCMToken)
	if err != nil {
		log.Printf("Warning: failed to create OCM client: %v", err)
	}
	if ocmClient == nil {
		log.Println("OCM not configured, managed cluster tools disabled")
	}

	taxonomies, err := introspect.LoadTaxonomies(cfg.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomies: %w", err)
	}

	registry := tools.NewRegistry(db)
	tools.NewCatalog(registry, k8sClient, ocmClient, taxonomies)

	server := &Server{
		app:       app,
		store:     db,
		config:    cfg,
		hub:       hub,
		registry:  registry,
		k8sClient: k8sClient,
	}
	server.setupMiddleware()
	server.setupRoutes()
	return server, nil
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "ok",
			"cluster_available": s.k8sClient.Available(),
			"ws_clients":        s.hub.ClientCount(),
		})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	if s.config.JWTSecret != "" {
		api.Use(middleware.JWTAuth(s.config.JWTSecret))
	}

	toolHandler := handlers.NewToolHandler(s.registry, s.store, s.hub)
	api.Get("/tools", toolHandler.ListTools)
	api.Post("/tools/:name/call", toolHandler.CallTool)
	api.Get("/invocations", toolHandler.ListInvocations)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.hub.ServeWS))
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the server until Shutdown is called
func (s *Server) Start() error {
	log.Printf("Starting server on port %d", s.config.Port)
	return s.app.Listen(fmt.Sprintf(":%d", s.config.Port))
}

// Shutdown stops the server and releases resources
func (s *Server) Shutdown() error {
	s.k8sClient.StopWatching()
	s.hub.Stop()
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	return s.store.Close()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

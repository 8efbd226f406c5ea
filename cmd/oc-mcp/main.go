package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AdamKaabyia/oc-mcp/pkg/api"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8090), "Port to listen on")
	dbPath := flag.String("db", envOr("DATABASE_PATH", "oc-mcp.db"), "Path to the audit database")
	kubeconfig := flag.String("kubeconfig", "", "Path to kubeconfig file")
	taxonomyPath := flag.String("taxonomies", os.Getenv("TAXONOMY_PATH"), "Path to taxonomy overrides (YAML)")
	flag.Parse()

	server, err := api.NewServer(api.Config{
		Port:         *port,
		DatabasePath: *dbPath,
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TaxonomyPath: *taxonomyPath,
		OCMToken:     os.Getenv("OCM_OFFLINE_TOKEN"),
		Kubeconfig:   *kubeconfig,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ragcorpus/internal/api"
	"ragcorpus/internal/chunking"
	"ragcorpus/internal/config"
	"ragcorpus/internal/db"
	"ragcorpus/internal/openai"
	"ragcorpus/internal/repository"
	"ragcorpus/internal/services"
	"ragcorpus/internal/services/events"
	"ragcorpus/internal/telemetry"
)

func main() {
	log.Println("🚀 Starting RAG corpus service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Initialize Jaeger tracing first so all operations are traced
	jaegerShutdown, err := telemetry.InitJaeger("ragcorpus", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	// Initialize GORM database
	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Chunk window comes from config and is validated here - a bad window
	// should kill the process, not the first upload.
	chunker, err := chunking.NewLineChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("❌ Invalid chunk configuration: %v", err)
	}
	log.Printf("✓ Line chunker ready (size=%d, overlap=%d)", cfg.ChunkSize, cfg.ChunkOverlap)

	// Initialize OpenAI embeddings client
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	log.Printf("✓ OpenAI client initialized (model=%s, dim=%d)", openaiClient.Model, openaiClient.Dimension())

	// Embedding worker pool caps concurrent provider calls across
	// overlapping ingestions
	pool := services.NewEmbeddingPool(openaiClient, cfg.EmbeddingWorkers, cfg.EmbeddingQueueSize)
	pool.Start()

	// Corpus event hub for the /ws/updates feed
	hub := events.NewHub()
	hub.Start()
	wsHandler := events.NewWebSocketHandler(hub)

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(database.DB)
	fileRepo := repository.NewFileRepository(database.DB)

	// Initialize services with dependency injection
	ingestService := services.NewIngestService(chunker, pool, projectRepo, fileRepo, hub, cfg.EmbeddingBatchSize)
	searchService := services.NewSearchService(pool, fileRepo)

	// Initialize handlers and routes
	handler := api.NewHandler(projectRepo, ingestService, searchService, hub, wsHandler)
	router := api.SetupRoutes(handler)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine so shutdown signals can be handled
	// concurrently
	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   POST   /api/projects                - Create project")
		log.Printf("   POST   /api/projects/get-or-create  - Get or create project by name")
		log.Printf("   GET    /api/projects                - List projects")
		log.Printf("   POST   /api/projects/:id/files      - Ingest file")
		log.Printf("   GET    /api/projects/:id/files      - List project files")
		log.Printf("   DELETE /api/files/:id               - Delete file")
		log.Printf("   POST   /api/projects/:id/search     - Semantic search")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	// Give the server 30 seconds to finish existing requests
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Drain the embedding pool, then close the event feed
	pool.Shutdown()
	hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}

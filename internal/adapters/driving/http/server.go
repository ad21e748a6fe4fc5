package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RookieRunboy/contract-search-system/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	searchService   driving.SearchService
	documentService driving.DocumentService
	metadataService driving.MetadataService
	ingestService   driving.IngestService

	// Infrastructure health checks
	db        Pinger
	taskQueue Pinger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8006,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	searchService driving.SearchService,
	documentService driving.DocumentService,
	metadataService driving.MetadataService,
	ingestService driving.IngestService,
	db Pinger, // can be nil
	taskQueue Pinger, // can be nil
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		searchService:   searchService,
		documentService: documentService,
		metadataService: metadataService,
		ingestService:   ingestService,
		db:              db,
		taskQueue:       taskQueue,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      CORS(Logging(s.router)),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and status
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /system/elasticsearch", s.handleBackendStatus)

	// Search; /search is kept for older clients
	s.router.HandleFunc("POST /document/search", s.handleSearch)
	s.router.HandleFunc("POST /search", s.handleSearch)

	// Ingest
	s.router.HandleFunc("POST /document/add", s.handleAddDocument)
	s.router.HandleFunc("POST /document/upload", s.handleAddDocument)
	s.router.HandleFunc("GET /document/status/{uploadID}", s.handleUploadStatus)

	// Listing and detail
	s.router.HandleFunc("GET /document/list", s.handleListDocuments)
	s.router.HandleFunc("GET /documents", s.handleListDocuments)
	s.router.HandleFunc("GET /documents/{name}/detail", s.handleDocumentDetail)

	// Deletion
	s.router.HandleFunc("DELETE /documents/{name}", s.handleDeleteDocument)
	s.router.HandleFunc("DELETE /document/delete", s.handleDeleteByQuery)
	s.router.HandleFunc("DELETE /clear-index", s.handleClearIndex)

	// Metadata
	s.router.HandleFunc("POST /document/extract-metadata", s.handleExtractMetadata)
	s.router.HandleFunc("POST /document/save-metadata", s.handleSaveMetadata)
}

// Handler returns the complete handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and blocks until shutdown.
func (s *Server) Start() error {
	// Handle graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("HTTP server stopped")
	return nil
}

// Stop shuts the server down without waiting for a signal.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

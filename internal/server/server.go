// Package server exposes the analysis pipeline and report archive over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atim-dev/atim/internal/analysis"
	"github.com/atim-dev/atim/internal/models"
)

// Analyzer runs one inventory analysis.
type Analyzer interface {
	Run(ctx context.Context, items []models.InventoryItem, opts analysis.Options) (*analysis.Result, error)
}

// ReportStore reads archived reports.
type ReportStore interface {
	GetReport(id string) (*models.Report, error)
	ListReports(limit int) ([]models.Report, error)
}

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	router   *chi.Mux
	analyzer Analyzer
	store    ReportStore
	defaults analysis.Options
	config   Config
}

// New creates the HTTP server. store may be nil when the archive is disabled;
// defaults supply the run options a form does not override.
func New(cfg Config, analyzer Analyzer, store ReportStore, defaults analysis.Options) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 4 * time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		analyzer: analyzer,
		store:    store,
		defaults: defaults,
		config:   cfg,
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Routes
	router.Get("/", s.handleIndex)
	router.Post("/upload", s.handleUpload)
	router.Get("/health", s.handleHealth)
	router.Route("/reports", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Get("/{id}", s.handleGetReport)
	})

	s.router = router
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

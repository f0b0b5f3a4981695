package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/metrics"
	"github.com/brojonat/blinkpay/service/temporal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActionVersion is the Solana Actions protocol version advertised on action responses.
const ActionVersion = "2.1.3"

// Server represents the HTTP server for payment links.
type Server struct {
	addr         string
	cfg          *config.Config
	links        *links.Service
	chain        temporal.SignatureChecker
	confirmer    temporal.Confirmer
	ssePublisher *SSEPublisher
	renderer     *TemplateRenderer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The chain is used for direct signature status lookups.
// The confirmer is optional - if nil, confirmation workflow endpoints won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, svc *links.Service, chain temporal.SignatureChecker, confirmer temporal.Confirmer, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		cfg:       cfg,
		links:     svc,
		chain:     chain,
		confirmer: confirmer,
		metrics:   m,
		logger:    logger,
	}
}

// WithTemplates adds template rendering support to the server using embedded files
func (s *Server) WithTemplates() error {
	renderer, err := NewTemplateRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("HTML templates loaded from embedded files")
	return nil
}

// WithSSE enables the link event stream.
func (s *Server) WithSSE(publisher *SSEPublisher) *Server {
	s.ssePublisher = publisher
	return s
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	instrument := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	// Link creation
	mux.Handle("POST /api/create-link", instrument("create_link", handleCreateLink(s.links, s.cfg, s.logger)))

	// Solana Action endpoints
	mux.Handle("GET /actions.json", withActionHeaders(s.cfg, handleActionsJSON()))
	mux.Handle("GET /p/{id}/action.json", instrument("get_action", withActionHeaders(s.cfg, handleGetAction(s.links, s.logger))))
	mux.Handle("POST /p/{id}/action.json", instrument("build_transaction", withActionHeaders(s.cfg, handleBuildTransaction(s.links, s.logger))))

	// Confirmation tracking
	mux.Handle("GET /api/v1/signatures/{signature}", instrument("signature_status", handleGetSignatureStatus(s.chain, s.logger)))
	if s.confirmer != nil {
		mux.Handle("POST /p/{id}/confirm", instrument("start_confirmation", handleStartConfirmation(s.links, s.confirmer, s.logger)))
		mux.Handle("GET /api/v1/confirmations/{workflow_id}", instrument("get_confirmation", handleGetConfirmation(s.confirmer, s.logger)))
		s.logger.Info("confirmation workflow endpoints enabled")
	} else {
		s.logger.Warn("temporal not configured, confirmation workflow endpoints disabled")
	}

	// SSE streaming endpoint (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/links/{id}", handleStreamLinkEvents(s.ssePublisher, s.logger))
		s.logger.Info("SSE streaming endpoint enabled")
	}

	// HTML pages (if template renderer is configured)
	if s.renderer != nil {
		mux.Handle("GET /{$}", handleIndexPage(s.renderer, s.cfg))
		mux.Handle("GET /p/{id}", instrument("payment_page", handlePaymentPage(s.links, s.renderer, s.cfg, s.confirmer != nil, s.ssePublisher != nil, s.logger)))
		s.logger.Info("HTML page endpoints enabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams are long-lived
		IdleTimeout:  60 * time.Second,
	}
	if s.ssePublisher == nil {
		s.server.WriteTimeout = 15 * time.Second
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
// Action clients call the action endpoints from arbitrary origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Content-Encoding, Accept-Encoding")
		w.Header().Set("Access-Control-Expose-Headers", "X-Action-Version, X-Blockchain-Ids")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withActionHeaders sets the headers Action clients use to check compatibility.
func withActionHeaders(cfg *config.Config, next http.Handler) http.Handler {
	blockchainID := cfg.BlockchainID()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Action-Version", ActionVersion)
		w.Header().Set("X-Blockchain-Ids", blockchainID)
		next.ServeHTTP(w, r)
	})
}

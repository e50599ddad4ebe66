package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/quizpool/internal/domain"
	"github.com/alanyoungcy/quizpool/internal/server/handler"
	"github.com/alanyoungcy/quizpool/internal/server/middleware"
	"github.com/alanyoungcy/quizpool/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// AdminKey guards the mutation endpoints (create, attach, finalize,
	// settings). If empty, admin authentication is disabled.
	AdminKey string
	// JoinRateLimit caps join/answer requests per client per minute.
	// Zero disables rate limiting.
	JoinRateLimit int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Competitions  *handler.CompetitionHandler
	Participation *handler.ParticipationHandler
	Settlement    *handler.SettlementHandler
	Balances      *handler.BalanceHandler
	Admin         *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// Read endpoints are public; mutation endpoints that steer other people's
// money require the admin key. Join and answer submission are public but
// rate limited when a limiter is provided.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	admin := middleware.Auth(cfg.AdminKey)

	limited := func(h http.HandlerFunc) http.Handler {
		if limiter == nil || cfg.JoinRateLimit <= 0 {
			return h
		}
		return middleware.RateLimit(limiter, cfg.JoinRateLimit, time.Minute)(h)
	}

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Competition registry.
	mux.HandleFunc("GET /api/competitions", handlers.Competitions.ListCompetitions)
	mux.HandleFunc("GET /api/competitions/{id}", handlers.Competitions.GetCompetition)
	mux.HandleFunc("GET /api/competitions/{id}/questions", handlers.Competitions.ListQuestions)
	mux.Handle("POST /api/competitions", admin(http.HandlerFunc(handlers.Competitions.CreateCompetition)))
	mux.Handle("POST /api/competitions/{id}/questions", admin(http.HandlerFunc(handlers.Competitions.AttachQuestions)))

	// Participation.
	mux.Handle("POST /api/competitions/{id}/join", limited(handlers.Participation.Join))
	mux.Handle("POST /api/competitions/{id}/answers", limited(handlers.Participation.SubmitAnswers))
	mux.HandleFunc("GET /api/competitions/{id}/participants", handlers.Participation.ListParticipants)

	// Settlement.
	mux.Handle("POST /api/competitions/{id}/finalize", admin(http.HandlerFunc(handlers.Settlement.Finalize)))

	// Balance ledger.
	mux.HandleFunc("GET /api/balances/{participant}", handlers.Balances.GetBalance)
	mux.HandleFunc("POST /api/balances/{participant}/withdraw", handlers.Balances.Withdraw)

	// Admin settings and audit trail.
	mux.Handle("GET /api/admin/settings", admin(http.HandlerFunc(handlers.Admin.GetSettings)))
	mux.Handle("PUT /api/admin/settings", admin(http.HandlerFunc(handlers.Admin.UpdateSettings)))
	mux.Handle("GET /api/admin/audit", admin(http.HandlerFunc(handlers.Admin.ListAudit)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bolso/internal/cache"
	"bolso/internal/log"
	"bolso/internal/services"
)

// Deps carries everything the API server needs. Cache may be nil to
// disable response caching; APIKey may be empty to leave the guarded
// endpoints open.
type Deps struct {
	Transactions *services.TransactionService
	Insights     *services.InsightService
	Goals        *services.GoalService
	Alerts       *services.AlertService
	Accounts     *services.AccountService
	Cache        cache.Store
	Pinger       Pinger
	APIKey       string
	Logger       *log.Logger
}

// Pinger reports backend reachability for the readiness probe. A nil
// Pinger makes /readyz answer ready unconditionally.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	insights     *services.InsightService
	goals        *services.GoalService
	alerts       *services.AlertService
	accounts     *services.AccountService

	cache  cache.Store
	pinger Pinger
	apiKey string

	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Method branching happens inside each handler, so every
// route registers exactly once.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		transactions: deps.Transactions,
		insights:     deps.Insights,
		goals:        deps.Goals,
		alerts:       deps.Alerts,
		accounts:     deps.Accounts,
		cache:        deps.Cache,
		pinger:       deps.Pinger,
		apiKey:       deps.APIKey,
		rateLimiter:  newRateLimiter(),
		logger:       deps.Logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/transactions", s.withAPIMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/import", s.withAPIMiddleware(s.handleImport))
	mux.HandleFunc("/api/export", s.withAPIMiddleware(s.handleExport))
	mux.HandleFunc("/api/summary", s.withAPIMiddleware(s.handleSummary))
	mux.HandleFunc("/api/insights", s.withAPIMiddleware(s.handleInsights))
	mux.HandleFunc("/api/goals", s.withAPIMiddleware(s.handleGoals))
	mux.HandleFunc("/api/budget", s.withAPIMiddleware(s.handleBudget))
	mux.HandleFunc("/api/alerts", s.withAPIMiddleware(s.handleAlerts))
	mux.HandleFunc("/api/notify", s.withAPIMiddleware(s.handleNotify))
	mux.HandleFunc("/api/accounts", s.withAPIMiddleware(s.handleAccounts))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withAPIMiddleware adds CORS, security headers, rate limiting and request
// logging to an API handler.
func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := s.logger.With(log.FieldRequestID, requestID)
		r = r.WithContext(log.WithLogger(r.Context(), logger))

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		logger.InfoContext(r.Context(), "Request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		if isWriteMethod(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "Limite de requisições excedido. Tente novamente mais tarde.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(r.Context(), "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// requireAPIKey guards an endpoint behind the X-API-Key header. An empty
// configured key leaves the endpoint open.
func (s *Server) requireAPIKey(w http.ResponseWriter, r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	if r.Header.Get("X-API-Key") != s.apiKey {
		writeJSONError(w, http.StatusUnauthorized, "API key inválida")
		return false
	}
	return true
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolavi/blog-pipeline/internal/config"
	"github.com/kolavi/blog-pipeline/internal/db"
	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/llm"
	"github.com/kolavi/blog-pipeline/internal/metrics"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
	"github.com/kolavi/blog-pipeline/internal/search"
	"github.com/kolavi/blog-pipeline/internal/server/middleware"
	"github.com/kolavi/blog-pipeline/internal/server/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	store       jobs.Store
	runner      *pipeline.Runner
	metrics     *metrics.Recorder
	rateLimiter *ratelimit.Limiter
	tokens      *TokenService
	authHandler *AuthHandler
}

// Config holds server configuration
type Config struct {
	Port              int
	DatabaseURL       string
	GeminiAPIKey      string
	SearchAPIKey      string
	SearchEngineID    string
	AdminPasswordHash string
	Pipeline          pipeline.Config
	UseBrowser        bool
}

// New creates a new server instance. Without a database URL the server
// runs on the in-memory store and jobs do not survive restarts.
func New(cfg Config) (*Server, error) {
	s := &Server{
		metrics: metrics.NewRecorder(zerolog.New(os.Stderr).With().Timestamp().Logger()),
	}

	var store jobs.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		s.db = database
		store = db.NewJobStore(database)
	} else {
		log.Println("No database configured, using in-memory job store")
		store = jobs.NewMemoryStore()
	}
	s.store = store

	llmClient, err := llm.NewClient(context.Background(), llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	searchClient, err := search.NewGoogleClient(context.Background(), cfg.SearchAPIKey, cfg.SearchEngineID)
	if err != nil {
		return nil, fmt.Errorf("failed to create search client: %w", err)
	}

	fetcher := pipeline.NewArticleFetcher()
	fetcher.UseBrowser = cfg.UseBrowser

	s.runner = pipeline.NewRunner(
		store,
		llmClient,
		searchClient,
		fetcher,
		s.metrics,
		zerolog.New(os.Stderr).With().Timestamp().Str("component", "pipeline").Logger(),
		cfg.Pipeline,
	)

	// Rate limiter
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	// Authentication
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	s.tokens = NewTokenService(jwtConfig)
	s.authHandler = NewAuthHandler(passwordConfig, cfg.AdminPasswordHash, s.tokens)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 660 * time.Second, // Longer than the one-shot pipeline deadline
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.HandleFunc("GET /health", s.handleHealth)

	// All /blog routes sit behind the JWT gate.
	requireAuth := middleware.RequireAuth(s.tokens)
	blog := http.NewServeMux()
	blog.HandleFunc("POST /blog/research", s.handleResearch)
	blog.HandleFunc("POST /blog/research/fetch", s.handleResearchFetch)
	blog.HandleFunc("POST /blog/brief", s.handleBrief)
	blog.HandleFunc("POST /blog/draft", s.handleDraft)
	blog.HandleFunc("POST /blog/validate", s.handleValidate)
	blog.HandleFunc("POST /blog/humanize", s.handleHumanize)
	blog.HandleFunc("POST /blog/generate", s.handleGenerate)
	blog.HandleFunc("GET /blog/jobs/{id}", s.handleJobStatus)
	blog.HandleFunc("GET /blog/metrics", s.handleMetrics)
	mux.Handle("/blog/", requireAuth(blog))

	return s.withRecover(s.withRateLimit(s.withLogging(s.withCORS(mux))))
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.db != nil {
		s.db.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRecover converts handler panics into 500 responses. It sits
// outermost in the chain so a panic anywhere below never kills the
// connection without a response.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[panic] %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				s.errorResponse(w, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response. Precondition codes ride
// along so the frontend can route the user to the right stage.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	body := map[string]string{"error": SafeMessage(err)}
	if code := ErrorCode(err); code != "" {
		body["code"] = code
	}
	s.jsonResponse(w, HTTPStatus(err), body)
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

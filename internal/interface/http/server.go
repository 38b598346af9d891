// Package http implements the REST API of the trajectory archive: student
// records, grade edits, pending-subject lookups, course reports and the
// free-text interpreter.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archivo-trayectoria/trayectoria/internal/application/command"
	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/export/xlsx"
	"github.com/archivo-trayectoria/trayectoria/internal/interface/http/handlers"
	"github.com/archivo-trayectoria/trayectoria/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// APIKeyHeader - header name for API key authentication.
	APIKeyHeader string

	// APIKeys - valid API keys for mutating endpoints (empty = open).
	APIKeys []string

	// Version is reported by / and /health.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       60 * time.Second, // interpreter calls are slow
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		MaxBodyBytes:       1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		APIKeyHeader:       "X-API-Key",
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FeatureGate reports whether a named feature is on. config.FeatureFlags
// implements it.
type FeatureGate interface {
	IsEnabled(name string) bool
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	CreateStudent  *command.CreateStudentHandler
	UpdateSubject  *command.UpdateSubjectHandler
	UpdateHeader   *command.UpdateHeaderHandler
	DeleteStudent  *command.DeleteStudentHandler
	ImportStudents *command.ImportStudentsHandler
	Interpret      *command.InterpretHandler

	// Query Handlers (CQRS Read Side)
	ListStudents *query.ListStudentsHandler
	GetStudent   *query.GetStudentHandler
	GetPending   *query.GetPendingHandler
	ListCourses  *query.ListCoursesHandler
	CourseReport *query.GetCourseReportHandler

	Schema   *trajectory.Schema
	Exporter *xlsx.CourseReportExporter

	// Features gates optional endpoints. Nil enables everything.
	Features FeatureGate

	// Logger
	Logger *logger.Logger

	// Health Check Dependencies
	HealthChecker handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger

	limiter *handlers.RateLimiter

	mu        sync.RWMutex
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerMinute > 0 {
		s.limiter = handlers.NewRateLimiter(config.RateLimitPerMinute, time.Minute, handlers.ClientIP)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Students
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/schema", s.handleGetSchema)
	s.router.HandleFunc("GET /api/v1/students", s.handleListStudents)
	s.router.HandleFunc("POST /api/v1/students", s.handleCreateStudent)
	s.router.HandleFunc("POST /api/v1/students/import", s.handleImportStudents)
	s.router.HandleFunc("GET /api/v1/students/{id}", s.handleGetStudent)
	s.router.HandleFunc("DELETE /api/v1/students/{id}", s.handleDeleteStudent)
	s.router.HandleFunc("PATCH /api/v1/students/{id}/header", s.handleUpdateHeader)
	s.router.HandleFunc("PUT /api/v1/students/{id}/trajectory/{year}/{subject}", s.handleUpdateSubject)
	s.router.HandleFunc("GET /api/v1/students/{id}/pending", s.handleGetPending)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Interpreter
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/commands", s.handleInterpret)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Courses
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/courses", s.handleListCourses)
	s.router.HandleFunc("GET /api/v1/courses/options", s.handleCourseOptions)
	s.router.HandleFunc("GET /api/v1/courses/report", s.handleCourseReport)
	s.router.HandleFunc("GET /api/v1/courses/report.xlsx", s.handleCourseReportXLSX)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router. The first middleware listed is the
// outermost, so rate limiting and CORS answer before anything is logged.
func (s *Server) buildMiddlewareChain(router http.Handler) http.Handler {
	var chain []handlers.MiddlewareFunc
	if s.limiter != nil {
		chain = append(chain, s.limiter.Middleware)
	}
	if s.config.EnableCORS {
		chain = append(chain, s.corsMiddleware)
	}
	chain = append(chain,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		handlers.SecurityHeadersMiddleware,
		handlers.NoCacheMiddleware,
	)
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	chain = append(chain, handlers.NewAPIKeyAuth(s.config.APIKeyHeader, s.config.APIKeys).Middleware)

	return handlers.ChainHandler(router, chain...)
}

// requestIDMiddleware honours an incoming X-Request-ID or mints one, and
// puts a request-scoped logger in the context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.FromContext(r.Context()).Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", handlers.ClientIP(r)),
		)
	})
}

// recoveryMiddleware turns a handler panic into a 500 envelope.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.FromContext(r.Context()).Error("panic recovered",
				logger.Any("error", rec),
				logger.String("stack", string(debug.Stack())),
				logger.String("path", r.URL.Path),
			)
			writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-API-Key, X-Request-ID"
	corsExpose  = "Content-Disposition, X-Request-ID"
)

func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// corsMiddleware answers preflight requests itself.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); s.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExpose)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. A Server serves once.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if !s.startedAt.IsZero() {
		s.mu.Unlock()
		_ = ln.Close()
		return errors.New("server already started")
	}
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("listening", logger.String("address", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime is zero before Serve.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

// writeJSONWithMeta writes a JSON response with custom metadata.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	writeEnvelope(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	writeEnvelope(w, status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDomainError maps an application error to a status code.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", verr.message, verr.details...)
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", "Student not found")
	case shared.IsBusy(err):
		writeJSONError(w, r, http.StatusConflict, "busy", "An interpretation is already in progress")
	case errors.Is(err, shared.ErrInterpreterDisabled):
		writeJSONError(w, r, http.StatusServiceUnavailable, "interpreter_disabled", "The interpreter is not configured")
	case shared.IsValidation(err), errors.Is(err, shared.ErrInvalidFormat):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", logger.Operation(op), logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "The request could not be completed")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// getQueryParam extracts a query parameter with a default value.
func getQueryParam(r *http.Request, key, defaultValue string) string {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getQueryYear parses an optional school year parameter. Absent means zero.
func getQueryYear(r *http.Request, key string) (trajectory.SchoolYear, error) {
	value := getQueryParam(r, key, "")
	if value == "" {
		return 0, nil
	}
	if _, err := strconv.Atoi(value); err != nil {
		return 0, newValidationError(key + " must be a number between 1 and 5")
	}
	return trajectory.ParseSchoolYear(value)
}

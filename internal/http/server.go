package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tutorledger/internal/cache"
	"tutorledger/internal/calendar"
	"tutorledger/internal/core"
	"tutorledger/internal/ledger"
	appweb "tutorledger/web"
)

// RateSource supplies the conversion table for display rendering along
// with the time it was fetched from the feed.
type RateSource interface {
	Rates(ctx context.Context) core.RateTable
	FetchedAt() time.Time
}

// Server renders the tutoring ledger UI and accepts form submissions.
// Read endpoints render straight from the service's working copy; the
// overview partial is additionally cached per period and display
// currency, invalidated on every write.
type Server struct {
	http.Server
	templates *template.Template

	service *ledger.Service
	events  calendar.EventSource // nil when calendar integration is off
	rates   RateSource           // nil hides the dashboard rate block
	display core.Currency

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	overviewCache *cache.LRUCache[ledger.Overview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, events calendar.EventSource, rates RateSource, display core.Currency) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:       svc,
		events:        events,
		rates:         rates,
		display:       display,
		rateLimiter:   newRateLimiter(),
		metrics:       &securityMetrics{},
		overviewCache: cache.NewLRUCache[ledger.Overview](50, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// UI partials
	mux.HandleFunc("/ui/overview", s.withSecurityHeaders(s.handleOverview))
	mux.HandleFunc("/ui/student-balance", s.withSecurityHeaders(s.handleStudentBalance))
	mux.HandleFunc("/ui/events", s.withSecurityHeaders(s.handleEvents))

	// Writes
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("/transactions/update", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("/students", s.withSecurityHeaders(s.handleCreateStudent))
	mux.HandleFunc("/students/update", s.withSecurityHeaders(s.handleUpdateStudent))
	mux.HandleFunc("/students/delete", s.withSecurityHeaders(s.handleDeleteStudent))
	mux.HandleFunc("/settings/expected-income", s.withSecurityHeaders(s.handleExpectedIncome))
	mux.HandleFunc("/settings/debt", s.withSecurityHeaders(s.handleDebt))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.Path,
				"client_ip", clientIP)
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateCaches drops cached partials after a write.
func (s *Server) invalidateCaches() {
	s.overviewCache.Clear()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

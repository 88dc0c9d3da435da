package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/sKV/lib/identity"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var adminLogger = logger.GetLogger("admin")

// Stats is the document served on /stats
type Stats struct {
	Uptime         string             `json:"uptime"`
	ActiveSessions int                `json:"active_sessions"`
	Sessions       []identity.Session `json:"sessions"`
	Store          store.Info         `json:"store"`
	RateLimit      RateLimitStats     `json:"rate_limit"`
}

type RateLimitStats struct {
	Limit             int    `json:"limit"`
	Window            string `json:"window"`
	TrackedIdentities int    `json:"tracked_identities"`
}

// Stats returns a snapshot of the server state.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	uptime := time.Duration(0)
	if !started.IsZero() {
		uptime = time.Since(started).Truncate(time.Second)
	}

	sessions := s.registry.List()
	return Stats{
		Uptime:         uptime.String(),
		ActiveSessions: len(sessions),
		Sessions:       sessions,
		Store:          s.store.Info(),
		RateLimit: RateLimitStats{
			Limit:             s.limiter.Limit(),
			Window:            s.limiter.Window().String(),
			TrackedIdentities: s.limiter.Len(),
		},
	}
}

// --------------------------------------------------------------------------
// HTTP Admin Endpoint
// --------------------------------------------------------------------------

// AdminHandler returns the handler serving /healthz, /stats and /metrics.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		// Register handler
		if s.config.LogLevel == "debug" {
			mux.HandleFunc(pattern, loggerMiddleware(h))
		} else {
			mux.HandleFunc(pattern, h)
		}
	}

	handle("GET /healthz", s.handleHealth)
	handle("GET /stats", s.handleStats)
	handle("GET /metrics", s.handleMetrics)
	return mux
}

// AdminAddr returns the address of the admin endpoint or nil if it is disabled.
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminAddr
}

// startAdmin binds the admin endpoint and serves it in the background
func (s *Server) startAdmin() error {
	ln, err := net.Listen("tcp", s.config.AdminEndpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on admin endpoint %s: %w", s.config.AdminEndpoint, err)
	}

	s.admin = &http.Server{
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.adminAddr = ln.Addr()
	adminLogger.Infof("starting admin endpoint on %s", ln.Addr())
	go func() {
		if err := s.admin.Serve(ln); err != nil && err != http.ErrServerClosed {
			adminLogger.Errorf("admin endpoint failed: %v", err)
		}
	}()
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
		http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.metrics.set.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		adminLogger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, duration)
	}
}

// Package http exposes the JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/settings"
	"fintrack/internal/shopping"
)

type Server struct {
	http.Server
	auth     *auth.Service
	ledger   *ledger.Ledger
	settings *settings.Service
	shopping *shopping.Service

	rateLimiter  *rateLimiter
	summaryCache *cache.LRU[monthSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Deps carries the services the API sits on.
type Deps struct {
	Auth     *auth.Service
	Ledger   *ledger.Ledger
	Settings *settings.Service
	Shopping *shopping.Service
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:             deps.Auth,
		ledger:           deps.Ledger,
		settings:         deps.Settings,
		shopping:         deps.Shopping,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.NewLRU[monthSummary](100, 5*time.Minute), // Max 100 entries, 5min TTL
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("POST /api/logout", s.withMiddleware(s.handleLogout))
	mux.HandleFunc("POST /api/reset-password", s.withMiddleware(s.handleResetPassword))
	mux.HandleFunc("GET /api/me", s.withMiddleware(s.handleMe))

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.requireUser(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.requireUser(s.handleCreateExpense)))
	mux.HandleFunc("PATCH /api/expenses/{id}", s.withMiddleware(s.requireUser(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withMiddleware(s.requireUser(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/incomes", s.withMiddleware(s.requireUser(s.handleListIncomes)))
	mux.HandleFunc("POST /api/incomes", s.withMiddleware(s.requireUser(s.handleCreateIncome)))
	mux.HandleFunc("PATCH /api/incomes/{id}", s.withMiddleware(s.requireUser(s.handleUpdateIncome)))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withMiddleware(s.requireUser(s.handleDeleteIncome)))

	mux.HandleFunc("GET /api/fixed-expenses", s.withMiddleware(s.requireUser(s.handleListFixedExpenses)))
	mux.HandleFunc("POST /api/fixed-expenses", s.withMiddleware(s.requireUser(s.handleCreateFixedExpense)))
	mux.HandleFunc("PATCH /api/fixed-expenses/{id}", s.withMiddleware(s.requireUser(s.handleUpdateFixedExpense)))
	mux.HandleFunc("DELETE /api/fixed-expenses/{id}", s.withMiddleware(s.requireUser(s.handleDeleteFixedExpense)))

	mux.HandleFunc("GET /api/shopping-lists", s.withMiddleware(s.requireUser(s.handleListShoppingLists)))
	mux.HandleFunc("POST /api/shopping-lists", s.withMiddleware(s.requireUser(s.handleCreateShoppingList)))
	mux.HandleFunc("DELETE /api/shopping-lists/{id}", s.withMiddleware(s.requireUser(s.handleDeleteShoppingList)))
	mux.HandleFunc("POST /api/shopping-lists/{id}/items", s.withMiddleware(s.requireUser(s.handleAddShoppingItem)))
	mux.HandleFunc("POST /api/shopping-lists/{id}/items/{itemID}/toggle", s.withMiddleware(s.requireUser(s.handleToggleShoppingItem)))
	mux.HandleFunc("DELETE /api/shopping-lists/{id}/items/{itemID}", s.withMiddleware(s.requireUser(s.handleRemoveShoppingItem)))
	mux.HandleFunc("POST /api/shopping-lists/{id}/complete", s.withMiddleware(s.requireUser(s.handleCompleteShoppingList)))

	mux.HandleFunc("GET /api/settings", s.withMiddleware(s.requireUser(s.handleGetSettings)))
	mux.HandleFunc("PATCH /api/settings", s.withMiddleware(s.requireUser(s.handleUpdateSettings)))
	mux.HandleFunc("PUT /api/settings/limits/{category}", s.withMiddleware(s.requireUser(s.handleSetCategoryLimit)))
	mux.HandleFunc("DELETE /api/settings/limits/{category}", s.withMiddleware(s.requireUser(s.handleRemoveCategoryLimit)))
	mux.HandleFunc("PUT /api/settings/total-limit", s.withMiddleware(s.requireUser(s.handleSetTotalLimit)))
	mux.HandleFunc("POST /api/settings/categories", s.withMiddleware(s.requireUser(s.handleAddCustomCategory)))
	mux.HandleFunc("DELETE /api/settings/categories/{name}", s.withMiddleware(s.requireUser(s.handleRemoveCustomCategory)))

	mux.HandleFunc("GET /api/reports/summary", s.withMiddleware(s.requireUser(s.handleMonthSummary)))
	mux.HandleFunc("GET /api/reports/future", s.withMiddleware(s.requireUser(s.handleFutureExpenses)))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the server plus the cleanup goroutines, exactly once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, mutating-method rate limiting,
// request ids, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
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

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

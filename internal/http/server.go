package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gastos/internal/cache"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

const (
	listCacheSize = 100
	listCacheTTL  = 30 * time.Second
)

// Server carries the REST surface over the budget and expense services. All
// authorization decisions go through the guard; handlers receive the resolved
// entities and thread them explicitly through the call chain.
type Server struct {
	http.Server

	budgets  *services.BudgetService
	expenses *services.ExpenseService
	guard    *services.Guard

	// listCache holds light budget lists keyed by owner; every mutation
	// touching an owner's budgets drops that owner's entry.
	listCache    *cache.LRUCache[services.BudgetList]
	cacheManager *cache.Manager

	ready func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. ready is probed by /readyz; pass nil to always report ready.
func NewServer(addr string, logger *applog.Logger, budgets *services.BudgetService, expenses *services.ExpenseService, guard *services.Guard, ready func(context.Context) error) *Server {
	mux := http.NewServeMux()

	s := &Server{
		budgets:      budgets,
		expenses:     expenses,
		guard:        guard,
		listCache:    cache.NewLRUCache[services.BudgetList](listCacheSize, listCacheTTL),
		cacheManager: cache.NewManager(),
		ready:        ready,
	}
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(5 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /budgets", s.withSecurityHeaders(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets", s.withSecurityHeaders(s.handleListBudgets))
	mux.HandleFunc("GET /budgets/expenses", s.withSecurityHeaders(s.handleListBudgetsWithExpenses))
	mux.HandleFunc("GET /budgets/{budgetID}", s.withSecurityHeaders(s.handleGetBudget))
	mux.HandleFunc("PATCH /budgets/{budgetID}", s.withSecurityHeaders(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{budgetID}", s.withSecurityHeaders(s.handleDeleteBudget))

	mux.HandleFunc("POST /budgets/{budgetID}/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("GET /budgets/{budgetID}/expenses", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("GET /budgets/{budgetID}/expenses/{expenseID}", s.withSecurityHeaders(s.handleGetExpense))
	mux.HandleFunc("PATCH /budgets/{budgetID}/expenses/{expenseID}", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /budgets/{budgetID}/expenses/{expenseID}", s.withSecurityHeaders(s.handleDeleteExpense))

	handler := applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(
		applog.RequestIDMiddleware(requestID)(mux))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		ip := clientIP(r)
		sl := applog.NewStructuredLogger(applog.FromContext(ctx))
		sl.LogHTTPStart(ctx, r, ip)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// identify extracts the acting user from the X-User-ID header, set by the
// upstream auth layer. Requests without it are rejected before any lookup.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing X-User-ID header"})
		return "", false
	}
	return userID, true
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

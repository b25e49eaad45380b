package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/cache"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	applog "github.com/Alexis-Gontier/my-weekly-allowance/internal/log"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/services"
)

type Server struct {
	http.Server
	children    *services.ChildService
	wallet      *services.WalletService
	allowances  *services.AllowanceService
	rateLimiter *rateLimiter
	requestLog  *applog.StructuredLogger

	// Overview reads are cached briefly; every mutation invalidates the
	// child's entry.
	overviewCache *cache.LRUCache[core.WalletOverview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter keyed by client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, logger *applog.Logger, children *services.ChildService, wallet *services.WalletService, allowances *services.AllowanceService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		children:      children,
		wallet:        wallet,
		allowances:    allowances,
		rateLimiter:   newRateLimiter(),
		requestLog:    applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
		overviewCache: cache.NewLRUCache[core.WalletOverview](100, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/children", s.guard(s.handleCreateChild))
	mux.HandleFunc("GET /api/children", s.guard(s.handleListChildren))
	mux.HandleFunc("GET /api/children/{id}", s.guard(s.handleGetChild))
	mux.HandleFunc("GET /api/children/{id}/transactions", s.guard(s.handleListTransactions))
	mux.HandleFunc("GET /api/children/{id}/overview", s.guard(s.handleOverview))
	mux.HandleFunc("POST /api/children/{id}/deposits", s.guard(s.handleDeposit))
	mux.HandleFunc("POST /api/children/{id}/expenses", s.guard(s.handleRecordExpense))
	mux.HandleFunc("PUT /api/children/{id}/allowance", s.guard(s.handleSetAllowance))
	mux.HandleFunc("GET /api/children/{id}/allowance", s.guard(s.handleGetAllowance))
	mux.HandleFunc("POST /api/allowances/process", s.guard(s.handleProcessAllowances))

	return s
}

// guard adds rate limiting, security headers and request logging.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
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

		s.requestLog.LogHTTPStart(ctx, r, clientIP)

		// Mutations are rate limited; reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded. Please try again later."})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.requestLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) overviewCacheKey(childID int64) string {
	return strconv.FormatInt(childID, 10)
}

func (s *Server) invalidateOverview(childID int64) {
	s.overviewCache.Delete(s.overviewCacheKey(childID))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

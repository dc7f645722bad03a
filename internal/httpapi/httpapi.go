package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/logger"
	"bizu/backend/internal/service"
)

type API struct {
	service       *service.Service
	verifier      *TokenVerifier
	allowedOrigin string
	pinLimiter    *attemptLimiter
}

func New(svc *service.Service, verifier *TokenVerifier, allowedOrigin string) *API {
	return &API{
		service:       svc,
		verifier:      verifier,
		allowedOrigin: allowedOrigin,
		pinLimiter:    newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

// Blocked reports whether key has used up its failures in the current window.
func (l *attemptLimiter) Blocked(key string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key, time.Now())) >= l.max
}

// Fail records one failed attempt for key.
func (l *attemptLimiter) Fail(key string) {
	if l == nil {
		return
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = append(l.prune(key, now), now)
}

func (l *attemptLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, key)
	} else {
		l.entries[key] = kept
	}
	return kept
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /api/v1/session", a.requireAuth(a.handleSession))

	mux.HandleFunc("GET /api/v1/products", a.requireAuth(a.handleListProducts))
	mux.HandleFunc("POST /api/v1/products", a.requireAuth(a.handleCreateProduct, domain.RoleAdmin))
	mux.HandleFunc("PATCH /api/v1/products/{id}", a.requireAuth(a.handleUpdateProduct, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/customers", a.requireAuth(a.handleListCustomers))
	mux.HandleFunc("POST /api/v1/customers", a.requireAuth(a.handleCreateCustomer, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/combos", a.requireAuth(a.handleListCombos))
	mux.HandleFunc("POST /api/v1/combos/select", a.requireAuth(a.handleSelectCombo))
	mux.HandleFunc("POST /api/v1/cart/quote", a.requireAuth(a.handleQuoteCart))
	mux.HandleFunc("POST /api/v1/checkout", a.requireAuth(a.handleCheckout))

	mux.HandleFunc("GET /api/v1/write-offs", a.requireAuth(a.handleListWriteOffs, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/write-offs", a.requireAuth(a.handleCreateWriteOff, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/debtors", a.requireAuth(a.handleDebtors, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/debtors/{id}/liquidate", a.requireAuth(a.handleLiquidate, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/debtors/{id}/reminder", a.requireAuth(a.handleReminder, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/debtors/{id}/statement.pdf", a.requireAuth(a.handleStatementPDF, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/closing", a.requireAuth(a.handleClosing, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/ledger", a.requireAuth(a.handleLedger, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/ledger/{kind}/{id}/reverse", a.requireAuth(a.handleReverse, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/analytics", a.requireAuth(a.handleAnalytics, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/collaborators", a.requireAuth(a.handleListCollaborators, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/collaborators", a.requireAuth(a.handleGrantAccess, domain.RoleAdmin))
	mux.HandleFunc("DELETE /api/v1/collaborators/{email}", a.requireAuth(a.handleRevokeAccess, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

type sessionContextKey struct{}

func sessionFrom(r *http.Request) domain.Session {
	sess, _ := r.Context().Value(sessionContextKey{}).(domain.Session)
	return sess
}

// requireAuth verifies the bearer token and resolves the caller against the
// collaborators allowlist. With no roles any allowlisted caller passes.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		email, err := a.verifier.Verify(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		sess, err := a.service.Authorize(r.Context(), email)
		if err != nil {
			if errors.Is(err, service.ErrForbidden) {
				writeError(w, http.StatusForbidden, errors.New("email is not on the access list"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(sess.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, sess)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session": sessionFrom(r)})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(startedAt)).
			Msg("request")
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log only.
	msg := err.Error()
	if status >= 500 {
		logger.Log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/irgordon/laraprov/internal/core/services"
)

type contextKey string

const SubjectKey contextKey = "subject"

// TokenVerifier checks dashboard bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*services.DashboardClaims, error)
}

type AuthMiddleware struct {
	Tokens   TokenVerifier
	Logger   *slog.Logger
	visitors sync.Map // ip -> *visitor

	limit rate.Limit
	burst int
}

type visitor struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

// NewAuthMiddleware starts a visitor cleanup loop that runs until ctx ends.
func NewAuthMiddleware(ctx context.Context, tokens TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	m := &AuthMiddleware{
		Tokens: tokens,
		Logger: logger,
		limit:  rate.Limit(10),
		burst:  30,
	}
	go m.cleanupVisitors(ctx)
	return m
}

// ==============================================================================
// 1. Identity
// ==============================================================================

func (m *AuthMiddleware) RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			http.Error(w, `{"message": "Unauthorized"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.Tokens.Verify(tokenString)
		if err != nil {
			m.Logger.Warn("Rejected dashboard token",
				slog.String("remote", r.RemoteAddr),
				slog.String("error", err.Error()))
			http.Error(w, `{"message": "Invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectFrom returns the authenticated subject, if any.
func SubjectFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(SubjectKey).(string)
	return s, ok
}

// ==============================================================================
// 2. Performance & DoS Protection
// ==============================================================================

func (m *AuthMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RealIP may already have stripped the port.
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		v, _ := m.visitors.LoadOrStore(ip, &visitor{
			limiter:  rate.NewLimiter(m.limit, m.burst),
			lastSeen: time.Now(),
		})
		vis := v.(*visitor)
		vis.touch()

		if !vis.limiter.Allow() {
			http.Error(w, `{"message": "Rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (v *visitor) touch() {
	v.mu.Lock()
	v.lastSeen = time.Now()
	v.mu.Unlock()
}

func (v *visitor) idleSince() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Since(v.lastSeen)
}

func (m *AuthMiddleware) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.visitors.Range(func(key, value interface{}) bool {
				if value.(*visitor).idleSince() > 3*time.Minute {
					m.visitors.Delete(key)
				}
				return true
			})
		}
	}
}

// extractToken reads the bearer header, falling back to the access_token
// query parameter because browsers cannot set headers on WebSocket upgrades.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

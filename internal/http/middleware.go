package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/go_travel/internal/cache"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	sessionCookie = "sid"
	sessionHeader = "X-Session-ID"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	requestIDKey
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves the visitor session from the sid cookie or the
// X-Session-ID header. Missing or malformed ids are replaced by a fresh
// anonymous session.
func SessionMiddleware(store SessionStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := r.Header.Get(sessionHeader)
			if c, err := r.Cookie(sessionCookie); sid == "" && err == nil {
				sid = c.Value
			}
			if _, err := uuid.Parse(sid); err != nil {
				sid = uuid.NewString()
				setSessionID(w, sid)
			} else {
				w.Header().Set(sessionHeader, sid)
			}

			sess, err := store.Get(r.Context(), sid)
			if err != nil {
				if !errors.Is(err, cache.ErrSessionNotFound) {
					requestLog(r.Context(), log).WithError(err).Warn("session lookup failed")
				}
				sess = &domain.Session{ID: sid}
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setSessionID hands the session id back as both cookie and header.
func setSessionID(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(sessionHeader, sid)
}

func getSession(ctx context.Context) *domain.Session {
	if s, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return s
	}
	return nil
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// requestLog tags the entry with the request id when ctx carries one.
func requestLog(ctx context.Context, log *logger.Logger) *logrus.Entry {
	entry := log.Ctx(ctx)
	if id := getRequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

// RequireLogin rejects visitors without a logged-in session.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := getSession(r.Context())
		if sess == nil || !sess.IsLoggedIn || sess.Token == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter limits requests per logged-in user, falling back to the client
// address. Session ids are chosen by the client and are never used as keys.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(limiterKey(r), time.Now()).Allow() {
			respondError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limiterKey(r *http.Request) string {
	if sess := getSession(r.Context()); sess != nil && sess.IsLoggedIn && sess.User.ID != "" {
		return "user:" + sess.User.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// Cleanup drops limiters not used for a while.
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.idleTTL {
			delete(rl.limiters, key)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.Cleanup(now)
		case <-ctx.Done():
			return
		}
	}
}

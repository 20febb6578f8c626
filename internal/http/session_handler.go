package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_travel/internal/checkout"
	"github.com/fjod/go_travel/internal/domain"
	"github.com/fjod/go_travel/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SessionHandler struct {
	remote    RemoteFactory
	sessions  SessionStore
	drafts    DraftStore
	checkouts *checkout.Registry
	ttl       time.Duration
	timeout   time.Duration
	log       *logger.Logger
}

func NewSessionHandler(remote RemoteFactory, sessions SessionStore, drafts DraftStore, checkouts *checkout.Registry, ttl, timeout time.Duration, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		remote:    remote,
		sessions:  sessions,
		drafts:    drafts,
		checkouts: checkouts,
		ttl:       ttl,
		timeout:   timeout,
		log:       log,
	}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponseDTO struct {
	IsLoggedIn bool         `json:"isLoggedIn"`
	User       *domain.User `json:"user,omitempty"`
	ExpiresAt  *time.Time   `json:"expiresAt,omitempty"`
}

// POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "email and password are required")
		return
	}

	token, user, err := h.remote("").Login(ctx, req.Email, req.Password)
	if err != nil {
		handleRemoteError(w, err)
		return
	}

	now := time.Now()
	ttl := sessionTTL(token, h.ttl, now)
	if ttl <= 0 {
		respondError(w, http.StatusUnauthorized, "token_expired", "login token already expired")
		return
	}

	// The authenticated session always gets a fresh id. The pre-login one is
	// dropped.
	prev := getSession(r.Context())
	sess := &domain.Session{
		ID:         uuid.NewString(),
		IsLoggedIn: true,
		Token:      token,
		User:       user,
		ExpiresAt:  now.Add(ttl),
	}
	if err := h.sessions.Save(ctx, sess, ttl); err != nil {
		requestLog(ctx, h.log).WithError(err).Error("save session")
		respondError(w, http.StatusInternalServerError, "internal_error", "could not store session")
		return
	}
	if prev != nil && prev.ID != "" {
		if err := h.sessions.Delete(ctx, prev.ID); err != nil {
			requestLog(ctx, h.log).WithError(err).Warn("delete pre-login session")
		}
	}
	setSessionID(w, sess.ID)

	respondJSON(w, http.StatusOK, toSessionDTO(sess))
}

// GET /api/v1/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toSessionDTO(getSession(r.Context())))
}

// DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess.IsLoggedIn {
		if err := h.remote(sess.Token).Logout(ctx); err != nil {
			requestLog(ctx, h.log).WithError(err).Warn("remote logout failed")
		}
	}

	if err := h.checkouts.Remove(ctx, sess.ID); err != nil {
		handleCheckoutError(w, err)
		return
	}
	if err := h.drafts.Delete(ctx, sess.ID); err != nil {
		requestLog(ctx, h.log).WithError(err).Warn("delete draft on logout")
	}
	if err := h.sessions.Delete(ctx, sess.ID); err != nil {
		requestLog(ctx, h.log).WithError(err).Error("delete session")
		respondError(w, http.StatusInternalServerError, "internal_error", "could not end session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionTTL is the configured TTL, shortened to the token's own expiry when
// the token is a JWT that carries one. A token that has already expired gets
// zero. The signature is not checked: the remote API does that on every call.
func sessionTTL(token string, max time.Duration, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return max
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return max
	}
	left := exp.Sub(now)
	if left <= 0 {
		return 0
	}
	return min(left, max)
}

func toSessionDTO(s *domain.Session) SessionResponseDTO {
	if s == nil || !s.IsLoggedIn {
		return SessionResponseDTO{}
	}
	user := s.User
	expiresAt := s.ExpiresAt
	return SessionResponseDTO{IsLoggedIn: true, User: &user, ExpiresAt: &expiresAt}
}

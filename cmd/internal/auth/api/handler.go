package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"careerquest/cmd/identity"
	"careerquest/cmd/internal/auth/ratelimit"
	"careerquest/cmd/internal/auth/reset"
	"careerquest/cmd/internal/auth/session"
	"careerquest/cmd/security/password"
)

// Services bundles the domain services the auth endpoints depend on.
type Services struct {
	Credentials *identity.Credentials
	Sessions    *session.Service
	Resets      *reset.Service
	Limiter     ratelimit.Limiter
	// Registry is optional. A nil or disabled registry skips idle checks.
	Registry *session.Registry
}

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	creds    *identity.Credentials
	sessions *session.Service
	resets   *reset.Service
	limiter  ratelimit.Limiter
	registry *session.Registry

	auditor  Auditor
	notifier ResetNotifier

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditor overrides the default log-only auditor.
func WithAuditor(a Auditor) HandlerOption {
	return func(h *Handler) {
		if h == nil || a == nil {
			return
		}
		h.auditor = a
	}
}

// WithResetNotifier overrides the default no-op reset notifier.
func WithResetNotifier(n ResetNotifier) HandlerOption {
	return func(h *Handler) {
		if h == nil || n == nil {
			return
		}
		h.notifier = n
	}
}

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, svc Services, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case svc.Credentials == nil:
		return nil, errors.New("auth: nil credentials")
	case svc.Sessions == nil:
		return nil, errors.New("auth: nil session service")
	case svc.Resets == nil:
		return nil, errors.New("auth: nil reset service")
	case svc.Limiter == nil:
		return nil, errors.New("auth: nil limiter")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		creds:    svc.Credentials,
		sessions: svc.Sessions,
		resets:   svc.Resets,
		limiter:  svc.Limiter,
		registry: svc.Registry,
		auditor:  LogAuditor{Log: log},
		notifier: NoopResetNotifier{},
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/auth/profile", h.handleProfile)
	mux.HandleFunc("/api/auth/password", h.handleChangePassword)
	mux.HandleFunc("/api/auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/api/auth/reset-password", h.handleResetPassword)
	mux.HandleFunc("/api/auth/account", h.handleDeleteAccount)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "name, email and password are required")
		return
	}

	ctx := r.Context()
	now := h.now()

	u, err := h.creds.Create(ctx, identity.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     registerRole(req.Role),
		Profile:  toProfile(req.Profile),
		Now:      now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusBadRequest, "EMAIL_EXISTS", "an account with this email already exists")
		case identity.InvalidField(err) == "name":
			writeError(w, http.StatusBadRequest, "INVALID_NAME", "name must be between 2 and 50 characters")
		case identity.InvalidField(err) == "email":
			writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "invalid email address")
		case identity.InvalidField(err) == "password":
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", weakPasswordMessage(err))
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeServerError(w)
		}
		return
	}

	issued, err := h.sessions.IssueSession(ctx, now, u.ID, u.Email)
	if err != nil {
		h.log.Error("auth.register.issue_session.fail", "err", err, "user_id", u.ID)
		writeServerError(w)
		return
	}
	h.registry.Touch(u.ID, now)
	h.auditRegister(r, u.ID, u.EmailNorm)

	writeJSON(w, http.StatusCreated, authResponse{
		Success:      true,
		Message:      "registration successful",
		User:         toUserResponse(u),
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.AccessExp,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// The limiter gate runs before body validation so a blocked client
	// always gets 429.
	var req loginRequest
	decodeErr := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req)
	email := identity.NormalizeEmail(req.Email)

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	key := limiterKey(ip)

	decision, err := h.limiter.Check(ctx, key, now)
	if err != nil {
		h.log.Error("auth.login.limiter.fail", "err", err)
		writeServerError(w)
		return
	}
	if !decision.Allowed {
		h.auditLoginRateLimited(r, email, ip, decision.RetryAfter(now))
		writeRateLimited(w, decision, now)
		return
	}

	if decodeErr != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "email and password are required")
		return
	}

	u, err := h.creds.FindByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeServerError(w)
			return
		}
		// Timing resistance: perform a dummy verify when user is missing.
		h.creds.VerifyDummy(req.Password)
		h.recordFailure(ctx, key, now)
		h.auditLoginFailed(r, "", email, "not_found")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
		return
	}

	if !h.creds.VerifyPassword(req.Password, u.PasswordHash) {
		h.recordFailure(ctx, key, now)
		h.auditLoginFailed(r, u.ID, email, "bad_password")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
		return
	}

	if err := h.limiter.Clear(ctx, key); err != nil {
		h.log.Warn("auth.login.limiter_clear.fail", "err", err)
	}

	issued, err := h.sessions.IssueSession(ctx, now, u.ID, u.Email)
	if err != nil {
		h.log.Error("auth.login.issue_session.fail", "err", err, "user_id", u.ID)
		writeServerError(w)
		return
	}
	h.registry.Touch(u.ID, now)
	h.auditLoginSuccess(r, u.ID, email)

	writeJSON(w, http.StatusOK, authResponse{
		Success:      true,
		Message:      "login successful",
		User:         toUserResponse(u),
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.AccessExp,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "refreshToken is required")
		return
	}

	ctx := r.Context()
	now := h.now()

	var user identity.User
	lookup := func(ctx context.Context, userID string) (string, error) {
		u, err := h.creds.FindByID(ctx, userID)
		if err != nil {
			return "", err
		}
		user = u
		return u.Email, nil
	}

	issued, rec, err := h.sessions.Refresh(ctx, now, refreshToken, lookup)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			h.auditRefreshFailed(r, "invalid_token")
			writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "invalid or expired refresh token")
		case identity.IsNotFound(err):
			// The account is gone; its refresh token must not linger.
			if err := h.sessions.RevokeRefresh(ctx, refreshToken); err != nil {
				h.log.Warn("auth.refresh.revoke.fail", "err", err)
			}
			h.auditRefreshFailed(r, "user_not_found")
			writeError(w, http.StatusUnauthorized, "USER_NOT_FOUND", "user not found")
		default:
			h.log.Error("auth.refresh.fail", "err", err, "user_id", rec.UserID)
			writeServerError(w)
		}
		return
	}

	h.auditRefresh(r, rec.UserID, issued.RefreshToken != "")

	writeJSON(w, http.StatusOK, refreshResponse{
		Success:      true,
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.AccessExp,
		User:         toUserResponse(user),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		// An unreadable body only means there is no refresh token to revoke.
		_ = decodeJSON(w, r, h.cfg.MaxBodyBytes, &req)
	}

	ctx := r.Context()
	now := h.now()
	refreshToken := strings.TrimSpace(req.RefreshToken)

	var userID string
	if tok := bearerToken(r); tok != "" {
		if claims, err := h.sessions.ValidateAccessToken(tok, now); err == nil {
			userID = claims.UserID
		}
	}
	if refreshToken != "" {
		if userID == "" {
			if rec, err := h.sessions.VerifyRefresh(ctx, refreshToken, now); err == nil {
				userID = rec.UserID
			}
		}
		if err := h.sessions.RevokeRefresh(ctx, refreshToken); err != nil {
			h.log.Error("auth.logout.revoke.fail", "err", err)
		}
	}
	if userID != "" {
		h.registry.Remove(userID)
	}

	h.auditLogout(r, userID)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	u, err := h.creds.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: toUserResponse(u)})
}

// ---- helpers ----

// requireAuth validates the bearer token and enforces the idle timeout.
// Account existence is left to each handler so a missing user maps to 404.
// On failure it writes the 401 and returns false.
func (h *Handler) requireAuth(w http.ResponseWriter, r *http.Request) (session.AccessClaims, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "NO_TOKEN", "access token required")
		return session.AccessClaims{}, false
	}

	now := h.now()
	claims, err := h.sessions.ValidateAccessToken(token, now)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token expired")
		return session.AccessClaims{}, false
	case errors.Is(err, session.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "invalid access token")
		return session.AccessClaims{}, false
	default:
		h.log.Warn("auth.require_auth.fail", "err", err)
		writeError(w, http.StatusUnauthorized, "AUTH_FAILED", "authentication failed")
		return session.AccessClaims{}, false
	}

	if !h.registry.Active(claims.UserID, now) {
		writeError(w, http.StatusUnauthorized, "SESSION_IDLE", "session expired due to inactivity")
		return session.AccessClaims{}, false
	}
	h.registry.Touch(claims.UserID, now)
	return claims, true
}

func (h *Handler) recordFailure(ctx context.Context, key string, now time.Time) {
	if err := h.limiter.Record(ctx, key, now); err != nil {
		h.log.Error("auth.login.limiter_record.fail", "err", err)
	}
}

func weakPasswordMessage(err error) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return "password is too short"
	case errors.Is(err, password.ErrPasswordTooLong):
		return "password is too long"
	default:
		return "password is too weak"
	}
}

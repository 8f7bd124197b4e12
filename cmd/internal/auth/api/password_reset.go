package authapi

import (
	"errors"
	"net/http"
	"strings"

	"careerquest/cmd/identity"
	"careerquest/cmd/internal/auth/reset"
)

const forgotPasswordMessage = "if an account exists for that email, a reset link has been sent"

// handleForgotPassword answers identically whether or not the email is known.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	email := identity.NormalizeEmail(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "email is required")
		return
	}

	ctx := r.Context()
	resp := forgotPasswordResponse{Success: true, Message: forgotPasswordMessage}

	u, err := h.creds.FindByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("auth.forgot_password.lookup.fail", "err", err)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	issued, err := h.resets.Issue(ctx, u.ID, h.now())
	if err != nil {
		h.log.Error("auth.forgot_password.issue.fail", "err", err, "user_id", u.ID)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := h.notifier.SendPasswordReset(ctx, PasswordResetMessage{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}); err != nil {
		h.log.Error("auth.forgot_password.notify.fail", "err", err, "user_id", u.ID)
	}
	h.auditResetRequested(r, u.ID, email)

	if h.cfg.ExposeResetToken {
		exp := issued.ExpiresAt
		resp.ResetToken = issued.Token
		resp.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "token and password are required")
		return
	}
	// Validate first so a weak password does not burn the token.
	if err := h.creds.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", weakPasswordMessage(err))
		return
	}

	ctx := r.Context()
	rec, err := h.resets.Consume(ctx, token, h.now())
	if err != nil {
		if errors.Is(err, reset.ErrNotFound) || errors.Is(err, reset.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", "invalid or expired reset token")
			return
		}
		h.log.Error("auth.reset_password.consume.fail", "err", err)
		writeServerError(w)
		return
	}

	u, err := h.creds.ChangePassword(ctx, rec.UserID, req.Password)
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			writeError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", "invalid or expired reset token")
		case identity.InvalidField(err) == "password":
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", weakPasswordMessage(err))
		default:
			h.log.Error("auth.reset_password.change.fail", "err", err, "user_id", rec.UserID)
			writeServerError(w)
		}
		return
	}

	revoked, err := h.sessions.RevokeAll(ctx, u.ID)
	if err != nil {
		h.log.Error("auth.reset_password.revoke_sessions.fail", "err", err, "user_id", u.ID)
	}
	h.registry.Remove(u.ID)
	h.auditResetCompleted(r, u.ID, revoked)

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "password has been reset"})
}

package authapi

import (
	"net/http"

	"careerquest/cmd/identity"
)

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	u, err := h.creds.Update(r.Context(), claims.UserID, identity.UserPatch{
		Name:    req.Name,
		Profile: toProfilePatch(req.Profile),
	})
	if err != nil {
		switch {
		case identity.InvalidField(err) == "name":
			writeError(w, http.StatusBadRequest, "INVALID_NAME", "name must be between 2 and 50 characters")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		default:
			h.log.Error("auth.profile.update.fail", "err", err, "user_id", claims.UserID)
			writeServerError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{
		Success: true,
		Message: "profile updated",
		User:    toUserResponse(u),
	})
}

// handleChangePassword re-hashes the password, signs out every other session and
// hands the caller a fresh token pair.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "currentPassword and newPassword are required")
		return
	}

	ctx := r.Context()
	now := h.now()

	u, err := h.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.log.Error("auth.password.lookup.fail", "err", err)
		writeServerError(w)
		return
	}
	if !h.creds.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "INVALID_PASSWORD", "current password is incorrect")
		return
	}

	u, err = h.creds.ChangePassword(ctx, u.ID, req.NewPassword)
	if err != nil {
		switch {
		case identity.InvalidField(err) == "password":
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", weakPasswordMessage(err))
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		default:
			h.log.Error("auth.password.change.fail", "err", err, "user_id", claims.UserID)
			writeServerError(w)
		}
		return
	}

	revoked, err := h.sessions.RevokeAll(ctx, u.ID)
	if err != nil {
		h.log.Error("auth.password.revoke_sessions.fail", "err", err, "user_id", u.ID)
	}
	if err := h.resets.RevokeUser(ctx, u.ID); err != nil {
		h.log.Error("auth.password.revoke_resets.fail", "err", err, "user_id", u.ID)
	}

	issued, err := h.sessions.IssueSession(ctx, now, u.ID, u.Email)
	if err != nil {
		h.log.Error("auth.password.issue_session.fail", "err", err, "user_id", u.ID)
		writeServerError(w)
		return
	}
	h.registry.Touch(u.ID, now)
	h.auditPasswordChanged(r, u.ID, revoked)

	writeJSON(w, http.StatusOK, authResponse{
		Success:      true,
		Message:      "password updated",
		User:         toUserResponse(u),
		Token:        issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresAt:    issued.AccessExp,
	})
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.requireAuth(w, r)
	if !ok {
		return
	}

	var req deleteAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "password is required")
		return
	}

	ctx := r.Context()
	now := h.now()

	u, err := h.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.log.Error("auth.account.lookup.fail", "err", err)
		writeServerError(w)
		return
	}
	if !h.creds.VerifyPassword(req.Password, u.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "INVALID_PASSWORD", "password is incorrect")
		return
	}

	if err := h.creds.SoftDelete(ctx, u.ID, now); err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.log.Error("auth.account.delete.fail", "err", err, "user_id", u.ID)
		writeServerError(w)
		return
	}

	if _, err := h.sessions.RevokeAll(ctx, u.ID); err != nil {
		h.log.Error("auth.account.revoke_sessions.fail", "err", err, "user_id", u.ID)
	}
	if err := h.resets.RevokeUser(ctx, u.ID); err != nil {
		h.log.Error("auth.account.revoke_resets.fail", "err", err, "user_id", u.ID)
	}
	h.registry.Remove(u.ID)
	h.auditAccountDeleted(r, u.ID, u.EmailNorm)

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "account deleted"})
}

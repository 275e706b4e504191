package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authenticate writes the error response itself and reports whether the
// credentials belong to an active user.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, req credentials) (*domain.User, bool) {
	if req.Username == "" || req.Password == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "username and password are required")
		return nil, false
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
		default:
			h.internalServerError(w, r, err)
		}
		return nil, false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.errorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}
	if !user.IsActive {
		h.errorResponse(w, r, http.StatusUnauthorized, "user account is inactive")
		return nil, false
	}

	return user, true
}

func (h *Handler) SessionLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, ok := h.authenticate(w, r, req)
	if !ok {
		return
	}

	sessionID := uuid.NewString()
	ttl := time.Duration(h.config.Session.Expiration) * time.Second
	if err := h.cache.Set(r.Context(), cache.SessionKey(sessionID), sessionData{UserID: user.ID}, ttl); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	now := h.now()
	if err := h.store.UpdateLastLogin(user.ID, now); err != nil {
		slog.Warn("failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   h.config.Session.Expiration,
		HttpOnly: true,
		Secure:   h.config.Environment == "production",
		SameSite: http.SameSiteLaxMode,
	})

	h.successResponse(w, r, "login successful", user)
}

func (h *Handler) SessionLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := r.Context().Value(SessionIDCtx).(string); ok {
		if _, err := h.cache.Delete(r.Context(), cache.SessionKey(sessionID)); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.successResponse(w, r, "logout successful", nil)
}

// SessionCheck is public; it answers 401 instead of redirecting when no
// valid session is attached.
func (h *Handler) SessionCheck(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.config.Session.CookieName)
	if err != nil {
		h.errorWithData(w, r, http.StatusUnauthorized, "not authenticated", map[string]bool{"authenticated": false})
		return
	}

	var session sessionData
	found, err := h.cache.Get(r.Context(), cache.SessionKey(cookie.Value), &session)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !found {
		h.errorWithData(w, r, http.StatusUnauthorized, "not authenticated", map[string]bool{"authenticated": false})
		return
	}

	user, err := h.store.GetUserByID(session.UserID)
	if err != nil || !user.IsActive {
		h.errorWithData(w, r, http.StatusUnauthorized, "not authenticated", map[string]bool{"authenticated": false})
		return
	}

	h.successResponse(w, r, "authenticated", map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

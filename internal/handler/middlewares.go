package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const requestIDHeader = "X-Request-ID"

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// requestID reuses an incoming X-Request-ID or generates one.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), RequestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("request handled", "request_id", requestIDFrom(r.Context()), "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				fmt.Print(string(debug.Stack()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type sessionData struct {
	UserID int64 `json:"user_id"`
}

// auth accepts a bearer access token or a session cookie and puts the active
// user into the request context.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var userID int64
		if header := r.Header.Get("Authorization"); header != "" {
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				h.errorResponse(w, r, http.StatusUnauthorized, "authorization header must use the Bearer scheme")
				return
			}
			claims, err := h.parseToken(tokenString, tokenAccess)
			if err != nil {
				h.errorResponse(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			userID, err = strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				h.errorResponse(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
		} else {
			cookie, err := r.Cookie(h.config.Session.CookieName)
			if err != nil {
				h.errorResponse(w, r, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}
			var session sessionData
			found, err := h.cache.Get(ctx, cache.SessionKey(cookie.Value), &session)
			if err != nil {
				h.internalServerError(w, r, err)
				return
			}
			if !found {
				h.errorResponse(w, r, http.StatusUnauthorized, "session expired")
				return
			}
			userID = session.UserID
			ctx = context.WithValue(ctx, SessionIDCtx, cookie.Value)
		}

		user, err := h.store.GetUserByID(userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, http.StatusUnauthorized, "user not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if !user.IsActive {
			h.errorResponse(w, r, http.StatusUnauthorized, "user account is inactive")
			return
		}

		ctx = context.WithValue(ctx, CurrentUserCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r.Context())
			if user == nil || !slices.Contains(roles, user.Role) {
				h.forbidden(w, r, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// userInfo loads the user named in the URL. Guards only ever see themselves.
func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid user id")
			return
		}

		me := currentUser(r.Context())
		if !me.IsAdmin() && me.ID != userID {
			h.notFound(w, r, "user not found")
			return
		}

		user, err := h.store.GetUserByID(userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "user not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(UserInfoCtx).(*domain.User)
		if user.Username == h.config.InitialAdmin.Username {
			h.forbidden(w, r, "the initial administrator cannot be modified")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// guardInfo loads an active guard. Ownership is checked by each endpoint.
func (h *Handler) guardInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guardID, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid guard id")
			return
		}

		guard, err := h.store.GetGuardByID(guardID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "guard not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if guard.User != nil && !guard.User.IsActive {
			h.notFound(w, r, "guard not found")
			return
		}

		ctx := context.WithValue(r.Context(), GuardInfoCtx, guard)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) exhibitionInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid exhibition id")
			return
		}

		e, err := h.store.GetExhibitionByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "exhibition not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ExhibitionCtx, e)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) positionInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid position id")
			return
		}

		p, err := h.store.GetPositionByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "position not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), PositionCtx, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) nonWorkingDayInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid non-working day id")
			return
		}

		d, err := h.store.GetNonWorkingDayByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "non-working day not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), NonWorkingDayCtx, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) swapRequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid swap request id")
			return
		}

		s, err := h.store.GetSwapRequestByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "swap request not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), SwapRequestCtx, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) notificationInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "invalid notification id")
			return
		}

		n, err := h.store.GetNotificationByID(id)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "notification not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), NotificationCtx, n)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

type notificationRequest struct {
	Title            *string           `json:"title"`
	Message          *string           `json:"message"`
	CastType         *domain.CastType  `json:"cast_type"`
	ToUserID         *int64            `json:"to_user_id"`
	NotificationDate *domain.Date      `json:"notification_date"`
	ShiftType        *domain.ShiftType `json:"shift_type"`
	ExhibitionID     *int64            `json:"exhibition_id"`
	ExpiresAt        *time.Time        `json:"expires_at"`
}

func (req *notificationRequest) apply(n *domain.Notification) {
	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Message != nil {
		n.Message = *req.Message
	}
	if req.CastType != nil {
		n.CastType = *req.CastType
	}
	if req.ToUserID != nil {
		n.ToUserID = req.ToUserID
	}
	if req.NotificationDate != nil {
		n.NotificationDate = req.NotificationDate
	}
	if req.ShiftType != nil {
		n.ShiftType = req.ShiftType
	}
	if req.ExhibitionID != nil {
		n.ExhibitionID = req.ExhibitionID
	}
	if req.ExpiresAt != nil {
		n.ExpiresAt = req.ExpiresAt
	}
}

// notificationAudience answers whether a user is addressed by a notification.
// Multicast matching needs the guard's held positions on the notification day.
type notificationAudience struct {
	h        *Handler
	user     *domain.User
	guard    *domain.Guard
	settings *domain.SystemSettings
}

func (h *Handler) audienceFor(ctx context.Context, me *domain.User) (*notificationAudience, error) {
	a := &notificationAudience{h: h, user: me}
	if me.IsAdmin() {
		return a, nil
	}
	guard, err := h.store.GetGuardByUserID(me.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	a.guard = guard
	if a.settings, err = h.activeSettings(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *notificationAudience) sees(n *domain.Notification) (bool, error) {
	if a.user.IsAdmin() {
		return true, nil
	}
	switch n.CastType {
	case domain.CastBroadcast:
		return true, nil
	case domain.CastUnicast:
		return n.ToUserID != nil && *n.ToUserID == a.user.ID, nil
	case domain.CastMulticast:
		if a.guard == nil || n.NotificationDate == nil {
			return false, nil
		}
		held, err := a.h.store.GetHeldPositions(a.guard.ID, *n.NotificationDate, *n.NotificationDate)
		if err != nil {
			return false, err
		}
		return scheduler.MatchesMulticast(a.settings, n, held), nil
	}
	return false, nil
}

// ListNotifications returns every notification to admins (only unexpired ones
// with active=true). Guards get the unexpired notifications addressed to them.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	now := h.now()

	var activeAt *time.Time
	if !me.IsAdmin() || r.URL.Query().Get("active") == "true" {
		activeAt = &now
	}
	all, err := h.store.ListNotifications(activeAt)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	audience, err := h.audienceFor(r.Context(), me)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	out := make([]*domain.Notification, 0, len(all))
	for _, n := range all {
		ok, err := audience.sees(n)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if ok {
			out = append(out, n)
		}
	}
	if r.URL.Query().Get("ordering") == "created_at" {
		slices.Reverse(out)
	}

	h.successResponse(w, r, "notifications retrieved", out)
}

func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	n := r.Context().Value(NotificationCtx).(*domain.Notification)
	me := currentUser(r.Context())

	audience, err := h.audienceFor(r.Context(), me)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	ok, err := audience.sees(n)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok || (!me.IsAdmin() && n.Expired(h.now())) {
		h.notFound(w, r, "notification not found")
		return
	}
	h.successResponse(w, r, "notification retrieved", n)
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	var req notificationRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	n := &domain.Notification{CreatedByID: &me.ID}
	req.apply(n)
	if err := n.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.store.CreateNotification(n); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	slog.Info("notification created", "notification_id", n.ID, "cast_type", n.CastType, "created_by", me.ID)
	h.createdResponse(w, r, "notification created successfully", n)
}

func (h *Handler) UpdateNotification(w http.ResponseWriter, r *http.Request) {
	current := r.Context().Value(NotificationCtx).(*domain.Notification)

	var req notificationRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	n := *current
	req.apply(&n)
	if err := n.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.store.UpdateNotification(&n); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "notification updated successfully", &n)
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	n := r.Context().Value(NotificationCtx).(*domain.Notification)
	if err := h.store.DeleteNotification(n.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "notification deleted successfully", nil)
}

// notifyShift posts a multicast notification to the guards working the same
// exhibition shift as p. Failures are logged only.
func (h *Handler) notifyShift(settings *domain.SystemSettings, p *domain.Position, createdBy *domain.User, title, message string) bool {
	n := &domain.Notification{
		CreatedByID:      &createdBy.ID,
		Title:            title,
		Message:          message,
		CastType:         domain.CastMulticast,
		NotificationDate: &p.Date,
		ExhibitionID:     &p.ExhibitionID,
	}
	if shift, ok := scheduler.ShiftOf(settings, p); ok {
		n.ShiftType = &shift
	}
	if err := h.store.CreateNotification(n); err != nil {
		slog.Warn("failed to create shift notification", "position_id", p.ID, "error", err)
		return false
	}
	return true
}

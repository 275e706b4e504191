package handler

import (
	"log/slog"
	"net/http"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

// ListNonWorkingDays accepts in_future=true to hide days already past.
func (h *Handler) ListNonWorkingDays(w http.ResponseWriter, r *http.Request) {
	var from *domain.Date
	if r.URL.Query().Get("in_future") == "true" {
		today := domain.DateOf(h.now().In(h.loc))
		from = &today
	}

	days, err := h.store.ListNonWorkingDays(from)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "non-working days retrieved", days)
}

func (h *Handler) GetNonWorkingDay(w http.ResponseWriter, r *http.Request) {
	d := r.Context().Value(NonWorkingDayCtx).(*domain.NonWorkingDay)
	h.successResponse(w, r, "non-working day retrieved", d)
}

type nonWorkingDayRequest struct {
	Date            *domain.Date      `json:"date"`
	IsFullDay       *bool             `json:"is_full_day"`
	NonWorkingShift *domain.ShiftType `json:"non_working_shift"`
	Reason          *string           `json:"reason" validate:"omitempty,max=255"`
}

func (req *nonWorkingDayRequest) apply(d *domain.NonWorkingDay) {
	if req.Date != nil {
		d.Date = *req.Date
	}
	if req.IsFullDay != nil {
		d.IsFullDay = *req.IsFullDay
	}
	if req.NonWorkingShift != nil {
		d.NonWorkingShift = req.NonWorkingShift
	}
	if req.Reason != nil {
		d.Reason = *req.Reason
	}
	if d.IsFullDay {
		d.NonWorkingShift = nil
	}
}

func validNonWorkingDay(d *domain.NonWorkingDay) string {
	if d.Date.IsZero() {
		return "date is required"
	}
	if !d.IsFullDay && (d.NonWorkingShift == nil || !d.NonWorkingShift.Valid()) {
		return "non_working_shift must be morning or afternoon when the day is not a full day"
	}
	return ""
}

type saveNonWorkingDay func(*domain.NonWorkingDay, func(*domain.Position) bool) (int, error)

// persistNonWorkingDay saves d and removes the positions it now covers.
func (h *Handler) persistNonWorkingDay(w http.ResponseWriter, r *http.Request, d *domain.NonWorkingDay, save saveNonWorkingDay) (int, bool) {
	if msg := validNonWorkingDay(d); msg != "" {
		h.errorResponse(w, r, http.StatusBadRequest, msg)
		return 0, false
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return 0, false
	}

	deleted, err := save(d, func(p *domain.Position) bool {
		return scheduler.AffectedByNonWorkingDay(settings, p, d)
	})
	if err != nil {
		if constraintViolation(err) == "non_working_days_date_shift_key" {
			h.errorResponse(w, r, http.StatusBadRequest, "a non-working day for that date and shift already exists")
			return 0, false
		}
		h.internalServerError(w, r, err)
		return 0, false
	}

	if deleted > 0 {
		h.invalidateSchedules(r)
	}
	slog.Info("non-working day saved", "date", d.Date.String(), "is_full_day", d.IsFullDay, "deleted_positions", deleted, "by_user", currentUser(r.Context()).ID)
	return deleted, true
}

func (h *Handler) CreateNonWorkingDay(w http.ResponseWriter, r *http.Request) {
	var req nonWorkingDayRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	d := &domain.NonWorkingDay{IsFullDay: true}
	req.apply(d)
	deleted, ok := h.persistNonWorkingDay(w, r, d, h.store.CreateNonWorkingDay)
	if !ok {
		return
	}

	h.createdResponse(w, r, "non-working day created", map[string]any{
		"non_working_day":   d,
		"deleted_positions": deleted,
	})
}

func (h *Handler) UpdateNonWorkingDay(w http.ResponseWriter, r *http.Request) {
	d := r.Context().Value(NonWorkingDayCtx).(*domain.NonWorkingDay)

	var req nonWorkingDayRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	req.apply(d)
	deleted, ok := h.persistNonWorkingDay(w, r, d, h.store.UpdateNonWorkingDay)
	if !ok {
		return
	}

	h.successResponse(w, r, "non-working day updated", map[string]any{
		"non_working_day":   d,
		"deleted_positions": deleted,
	})
}

// DeleteNonWorkingDay does not bring deleted positions back.
func (h *Handler) DeleteNonWorkingDay(w http.ResponseWriter, r *http.Request) {
	d := r.Context().Value(NonWorkingDayCtx).(*domain.NonWorkingDay)

	if err := h.store.DeleteNonWorkingDay(d.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "non-working day deleted", nil)
}

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// ListPoints returns the newest first unless ordering=date_awarded is given.
func (h *Handler) ListPoints(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	var guardID *int64
	if me.IsAdmin() {
		if id, ok := queryInt64(r, "guard_id"); ok {
			guardID = &id
		}
	} else {
		guard, err := h.actingGuard(me, nil)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		guardID = &guard.ID
	}

	points, err := h.store.ListPoints(guardID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if r.URL.Query().Get("ordering") == "date_awarded" {
		slices.Reverse(points)
	}

	h.successResponse(w, r, "points retrieved", points)
}

func (h *Handler) pointVisible(me *domain.User, p *domain.Point) (bool, error) {
	if me.IsAdmin() {
		return true, nil
	}
	guard, err := h.store.GetGuardByUserID(me.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return guard.ID == p.GuardID, nil
}

func (h *Handler) GetPoint(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid point id")
		return
	}

	point, err := h.store.GetPointByID(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "point not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	visible, err := h.pointVisible(currentUser(r.Context()), point)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !visible {
		h.notFound(w, r, "point not found")
		return
	}

	h.successResponse(w, r, "point retrieved", point)
}

// CreatePoint records a custom award or penalty.
func (h *Handler) CreatePoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuardID     int64    `json:"guard_id" validate:"required"`
		Points      *float64 `json:"points" validate:"required"`
		Explanation string   `json:"explanation" validate:"required"`
	}
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := h.store.GetGuardByID(req.GuardID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusBadRequest, "guard does not exist")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	point := &domain.Point{
		GuardID:     req.GuardID,
		Points:      domain.Round2(*req.Points),
		Explanation: req.Explanation,
	}
	if err := h.store.CreatePoint(point); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "point created", point)
}

func (h *Handler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid point id")
		return
	}

	if _, err := h.store.GetPointByID(id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "point not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.store.DeletePoint(id); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "point deleted", nil)
}

// PenalizeUnannouncedLateness lets an admin apply the penalty for a guard who
// was late without telling anyone.
func (h *Handler) PenalizeUnannouncedLateness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuardID         *int64 `json:"guard_id"`
		PositionID      *int64 `json:"position_id"`
		AdditionalNotes string `json:"additional_notes"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.GuardID == nil || *req.GuardID == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "guard_id is required")
		return
	}

	guard, err := h.store.GetGuardByID(*req.GuardID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "guard not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	explanation := "Penalty for being late without notification"
	if req.PositionID != nil {
		p, err := h.store.GetPositionByID(*req.PositionID)
		switch {
		case err == nil:
			explanation += fmt.Sprintf(" (Position: %s, %s)", exhibitionName(p), p.Date)
		case !errors.Is(err, sql.ErrNoRows):
			h.internalServerError(w, r, err)
			return
		}
	}
	if req.AdditionalNotes != "" {
		explanation += " - " + req.AdditionalNotes
	}

	point := &domain.Point{
		GuardID:     guard.ID,
		Points:      settings.PenaltyForBeingLateWithoutNotification,
		Explanation: explanation,
	}
	if err := h.store.CreatePoint(point); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "penalty applied successfully", map[string]any{
		"message": "penalty applied successfully",
		"point":   point,
	})
}

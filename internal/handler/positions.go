package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
)

func queryDate(r *http.Request, name string) (*domain.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListPositions accepts optional start_date and end_date filters.
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "start_date")
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "start_date must use the YYYY-MM-DD format")
		return
	}
	to, err := queryDate(r, "end_date")
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "end_date must use the YYYY-MM-DD format")
		return
	}

	positions, err := h.store.ListPositions(from, to)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if exhibitionID, ok := queryInt64(r, "exhibition_id"); ok {
		filtered := make([]*domain.Position, 0, len(positions))
		for _, p := range positions {
			if p.ExhibitionID == exhibitionID {
				filtered = append(filtered, p)
			}
		}
		positions = filtered
	}

	h.successResponse(w, r, "positions retrieved", positions)
}

func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(PositionCtx).(*domain.Position)
	h.successResponse(w, r, "position retrieved", p)
}

type positionRequest struct {
	ExhibitionID *int64        `json:"exhibition_id"`
	Date         *domain.Date  `json:"date"`
	StartTime    *domain.Clock `json:"start_time"`
	EndTime      *domain.Clock `json:"end_time"`
}

func (req *positionRequest) apply(p *domain.Position) {
	if req.ExhibitionID != nil {
		p.ExhibitionID = *req.ExhibitionID
	}
	if req.Date != nil {
		p.Date = *req.Date
	}
	if req.StartTime != nil {
		p.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		p.EndTime = *req.EndTime
	}
}

func (h *Handler) savePosition(w http.ResponseWriter, r *http.Request, p *domain.Position, save func(*domain.Position) error) bool {
	if err := utils.ValidatePosition(p); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return false
	}

	exhibition, err := h.store.GetExhibitionByID(p.ExhibitionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.errorResponse(w, r, http.StatusBadRequest, "exhibition does not exist")
			return false
		}
		h.internalServerError(w, r, err)
		return false
	}
	p.Exhibition = exhibition

	if err := save(p); err != nil {
		switch constraintViolation(err) {
		case "positions_times_check":
			h.errorResponse(w, r, http.StatusBadRequest, "end_time must be after start_time")
		case "foreign_key":
			h.errorResponse(w, r, http.StatusBadRequest, "exhibition does not exist")
		default:
			h.internalServerError(w, r, err)
		}
		return false
	}
	return true
}

func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.ExhibitionID == nil || req.Date == nil || req.StartTime == nil || req.EndTime == nil {
		h.errorResponse(w, r, http.StatusBadRequest, "exhibition_id, date, start_time and end_time are required")
		return
	}

	p := &domain.Position{}
	req.apply(p)
	if !h.savePosition(w, r, p, h.store.CreatePosition) {
		return
	}

	h.createdResponse(w, r, "position created", p)
}

func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(PositionCtx).(*domain.Position)

	var req positionRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	req.apply(p)
	if !h.savePosition(w, r, p, h.store.UpdatePosition) {
		return
	}

	h.successResponse(w, r, "position updated", p)
}

func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(PositionCtx).(*domain.Position)

	if err := h.store.DeletePosition(p.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "position deleted", nil)
}

func (h *Handler) NextWeekPositions(w http.ResponseWriter, r *http.Request) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !settings.NextWeekSet() {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "next week period is not set yet")
		return
	}

	positions, err := h.store.ListPositions(settings.NextWeekStart, settings.NextWeekEnd)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "next week positions retrieved", positions)
}

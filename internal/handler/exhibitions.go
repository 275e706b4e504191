package handler

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
)

var exhibitionOrderings = map[string]func(a, b *domain.Exhibition) int{
	"name":       func(a, b *domain.Exhibition) int { return strings.Compare(a.Name, b.Name) },
	"start_date": func(a, b *domain.Exhibition) int { return a.StartDate.Compare(b.StartDate) },
	"end_date":   func(a, b *domain.Exhibition) int { return a.EndDate.Compare(b.EndDate) },
}

// sortExhibitions applies an ordering such as "name" or "-start_date". Unknown
// fields leave the slice untouched.
func sortExhibitions(exhibitions []*domain.Exhibition, ordering string) {
	field, desc := strings.CutPrefix(ordering, "-")
	cmp, ok := exhibitionOrderings[field]
	if !ok {
		return
	}
	slices.SortStableFunc(exhibitions, func(a, b *domain.Exhibition) int {
		if desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
}

func (h *Handler) ListExhibitions(w http.ResponseWriter, r *http.Request) {
	exhibitions, err := h.store.GetAllExhibitions()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if status := domain.ExhibitionStatus(r.URL.Query().Get("status")); status != "" {
		now := h.now()
		filtered := make([]*domain.Exhibition, 0, len(exhibitions))
		for _, e := range exhibitions {
			if e.Status(now) == status {
				filtered = append(filtered, e)
			}
		}
		exhibitions = filtered
	}
	sortExhibitions(exhibitions, r.URL.Query().Get("ordering"))

	h.successResponse(w, r, "exhibitions retrieved", exhibitions)
}

func (h *Handler) GetExhibition(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(ExhibitionCtx).(*domain.Exhibition)
	h.successResponse(w, r, "exhibition retrieved", e)
}

type exhibitionRequest struct {
	Name              *string    `json:"name" validate:"omitempty,min=1,max=255"`
	NumberOfPositions *int       `json:"number_of_positions" validate:"omitempty,min=1"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	Rules             *string    `json:"rules"`
	IsSpecialEvent    *bool      `json:"is_special_event"`
	EventStartTime    *string    `json:"event_start_time"`
	EventEndTime      *string    `json:"event_end_time"`
	OpenOn            *[]int     `json:"open_on"`
}

func parseOptionalClock(s *string) (*domain.Clock, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := domain.ParseClock(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (req *exhibitionRequest) apply(e *domain.Exhibition) error {
	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.NumberOfPositions != nil {
		e.NumberOfPositions = *req.NumberOfPositions
	}
	if req.StartDate != nil {
		e.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		e.EndDate = *req.EndDate
	}
	if req.Rules != nil {
		e.Rules = *req.Rules
	}
	if req.IsSpecialEvent != nil {
		e.IsSpecialEvent = *req.IsSpecialEvent
	}
	if req.EventStartTime != nil {
		c, err := parseOptionalClock(req.EventStartTime)
		if err != nil {
			return err
		}
		e.EventStartTime = c
	}
	if req.EventEndTime != nil {
		c, err := parseOptionalClock(req.EventEndTime)
		if err != nil {
			return err
		}
		e.EventEndTime = c
	}
	if req.OpenOn != nil {
		e.OpenOn = *req.OpenOn
	}
	return nil
}

// saveExhibition validates e against the museum workdays before calling save.
func (h *Handler) saveExhibition(w http.ResponseWriter, r *http.Request, e *domain.Exhibition, save func(*domain.Exhibition) error) bool {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return false
	}
	if e.OpenOn == nil {
		e.OpenOn = slices.Clone(settings.Workdays)
	}
	if err := utils.ValidateExhibition(e, settings.Workdays); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return false
	}

	if err := save(e); err != nil {
		if constraintViolation(err) == "exhibitions_dates_check" {
			h.errorResponse(w, r, http.StatusBadRequest, "end_date must not be before start_date")
			return false
		}
		h.internalServerError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) CreateExhibition(w http.ResponseWriter, r *http.Request) {
	var req exhibitionRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Name == nil || req.StartDate == nil || req.EndDate == nil {
		h.errorResponse(w, r, http.StatusBadRequest, "name, start_date and end_date are required")
		return
	}

	e := &domain.Exhibition{NumberOfPositions: 1}
	if err := req.apply(e); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !h.saveExhibition(w, r, e, h.store.CreateExhibition) {
		return
	}

	h.createdResponse(w, r, "exhibition created", e)
}

func (h *Handler) UpdateExhibition(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(ExhibitionCtx).(*domain.Exhibition)

	var req exhibitionRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := req.apply(e); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if !h.saveExhibition(w, r, e, h.store.UpdateExhibition) {
		return
	}

	h.successResponse(w, r, "exhibition updated", e)
}

func (h *Handler) DeleteExhibition(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(ExhibitionCtx).(*domain.Exhibition)

	if err := h.store.DeleteExhibition(e.ID); err != nil {
		if constraintViolation(err) == "foreign_key" {
			h.errorResponse(w, r, http.StatusConflict, "exhibition still has positions with history")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "exhibition deleted", nil)
}

// NextWeekExhibitions lists the distinct exhibitions that have positions next week.
func (h *Handler) NextWeekExhibitions(w http.ResponseWriter, r *http.Request) {
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

	exhibitions := make([]*domain.Exhibition, 0)
	seen := make(map[int64]bool)
	for _, p := range positions {
		if p.Exhibition == nil || seen[p.ExhibitionID] {
			continue
		}
		seen[p.ExhibitionID] = true
		exhibitions = append(exhibitions, p.Exhibition)
	}
	sortExhibitions(exhibitions, "name")

	h.successResponse(w, r, "next week exhibitions retrieved", exhibitions)
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
)

// activeSettings reads the active version through the cache. When nothing has
// been stored yet the defaults are saved and returned.
func (h *Handler) activeSettings(ctx context.Context) (*domain.SystemSettings, error) {
	settings := &domain.SystemSettings{}
	found, err := h.cache.Get(ctx, cache.SystemSettingsKey, settings)
	if err != nil {
		slog.Warn("failed to read settings from cache", "error", err)
	}
	if found {
		return settings, nil
	}

	settings, err = h.store.GetActiveSettings()
	if errors.Is(err, sql.ErrNoRows) {
		settings = domain.DefaultSystemSettings()
		err = h.store.CreateSettingsVersion(settings)
	}
	if err != nil {
		return nil, err
	}

	if err := h.cache.Set(ctx, cache.SystemSettingsKey, settings, cache.SystemSettingsTTL); err != nil {
		slog.Warn("failed to cache settings", "error", err)
	}
	return settings, nil
}

func (h *Handler) GetActiveSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "active settings retrieved", settings)
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	versions, err := h.store.ListSettings()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "settings history retrieved", versions)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid settings id")
		return
	}

	settings, err := h.store.GetSettingsByID(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "settings not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	h.successResponse(w, r, "settings retrieved", settings)
}

func (h *Handler) GetWorkdays(w http.ResponseWriter, r *http.Request) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "workdays retrieved", map[string]any{"workdays": settings.Workdays})
}

// CreateSettings is only allowed while no active version exists. Absent fields
// keep their default values.
func (h *Handler) CreateSettings(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.GetActiveSettings()
	switch {
	case err == nil:
		h.errorResponse(w, r, http.StatusBadRequest, "active settings already exist, update them instead")
		return
	case !errors.Is(err, sql.ErrNoRows):
		h.internalServerError(w, r, err)
		return
	}

	settings := domain.DefaultSystemSettings()
	if err := h.readJSON(r, settings); err != nil {
		h.badRequest(w, r, err)
		return
	}
	settings.ThisWeekStart, settings.ThisWeekEnd = nil, nil
	settings.NextWeekStart, settings.NextWeekEnd = nil, nil
	h.storeSettingsVersion(w, r, settings, http.StatusCreated)
}

// UpdateSettings saves a new version on top of the active one. Week bounds are
// owned by the weekly tasks and cannot be changed here.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid settings id")
		return
	}

	current, err := h.store.GetActiveSettings()
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "settings not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if current.ID != id {
		h.errorResponse(w, r, http.StatusBadRequest, "only the active settings version can be updated")
		return
	}

	next := *current
	// the decoder writes through non-nil pointers, so the bounds must not be shared
	next.ThisWeekStart, next.ThisWeekEnd = nil, nil
	next.NextWeekStart, next.NextWeekEnd = nil, nil
	if err := h.readJSON(r, &next); err != nil {
		h.badRequest(w, r, err)
		return
	}
	next.ID = current.ID
	next.ThisWeekStart, next.ThisWeekEnd = current.ThisWeekStart, current.ThisWeekEnd
	next.NextWeekStart, next.NextWeekEnd = current.NextWeekStart, current.NextWeekEnd

	h.storeSettingsVersion(w, r, &next, http.StatusOK)
}

func (h *Handler) storeSettingsVersion(w http.ResponseWriter, r *http.Request, s *domain.SystemSettings, status int) {
	if err := utils.ValidateSettings(s); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	me := currentUser(r.Context())
	s.UpdatedByID = &me.ID
	s.IsActive = true

	if err := h.store.CreateSettingsVersion(s); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if _, err := h.cache.Delete(r.Context(), cache.SystemSettingsKey); err != nil {
		slog.Warn("failed to invalidate settings cache", "error", err)
	}
	if err := cache.InvalidateSchedules(r.Context(), h.cache); err != nil {
		slog.Warn("failed to invalidate schedule cache", "error", err)
	}

	h.writeJSON(w, r, status, Response{
		Success: true,
		Message: "settings saved",
		Data:    s,
	})
}

func (h *Handler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	h.methodNotAllowed(w, r, "system settings cannot be deleted")
}

func (h *Handler) ListHourlyRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.store.ListHourlyRates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "hourly rates retrieved", rates)
}

func (h *Handler) GetHourlyRate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid hourly rate id")
		return
	}

	rate, err := h.store.GetHourlyRateByID(id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "hourly rate not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	h.successResponse(w, r, "hourly rate retrieved", rate)
}

package handler

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
	"github.com/museum-staffing/shift-manager/backend/internal/utils"
)

func (h *Handler) ListGuards(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if !me.IsAdmin() {
		guard, err := h.store.GetGuardByUserID(me.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "guards retrieved", []*domain.Guard{guard})
		return
	}

	guards, err := h.store.GetActiveGuards()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "guards retrieved", guards)
}

// CreateGuard is refused: guard profiles are created together with the user.
func (h *Handler) CreateGuard(w http.ResponseWriter, r *http.Request) {
	h.methodNotAllowed(w, r, "guard profiles are created with their user account")
}

func (h *Handler) GetGuard(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	me := currentUser(r.Context())
	if !me.IsAdmin() && guard.UserID != me.ID {
		h.notFound(w, r, "guard not found")
		return
	}
	h.successResponse(w, r, "guard retrieved", guard)
}

// UpdateGuard answers every direct write on a guard profile. Admins are
// forbidden from editing guard data; guards use the dedicated actions.
func (h *Handler) UpdateGuard(w http.ResponseWriter, r *http.Request) {
	if currentUser(r.Context()).IsAdmin() {
		h.forbidden(w, r, h.message(msgAdminGuardProfile))
		return
	}
	h.methodNotAllowed(w, r, "use the set_availability, set_work_periods and preference actions instead")
}

// guardConfigurable lets only the guard themselves change their next-week configuration.
func (h *Handler) guardConfigurable(w http.ResponseWriter, r *http.Request, guard *domain.Guard) bool {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, h.message(msgAdminGuardConfig))
		return false
	}
	if guard.UserID != me.ID {
		h.forbidden(w, r, "you can only change your own configuration")
		return false
	}
	return true
}

// configurationOpen writes 503 or 403 unless next week is initialised and the
// configuration window is open.
func (h *Handler) configurationOpen(w http.ResponseWriter, r *http.Request, settings *domain.SystemSettings) bool {
	if !settings.NextWeekSet() {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "next week period is not set yet, the weekly task has to run first")
		return false
	}

	windows, err := scheduler.ComputeWindows(settings, h.loc)
	if err != nil {
		h.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
		return false
	}

	now := h.now().In(h.loc)
	if now.Before(windows.ConfigStart) {
		h.errorWithData(w, r, http.StatusForbidden, "configuration window is not open yet", map[string]string{
			"configuration_opens_at": windows.ConfigStart.Format(time.RFC3339),
		})
		return false
	}
	if !now.Before(windows.ConfigEnd) {
		h.errorWithData(w, r, http.StatusForbidden, "configuration window is closed", map[string]string{
			"configuration_closed_at": windows.ConfigEnd.Format(time.RFC3339),
		})
		return false
	}
	return true
}

type availabilityBreakdown struct {
	BaseWorkdays         int `json:"base_workdays"`
	BaseShifts           int `json:"base_shifts"`
	FullDaysOff          int `json:"full_days_off"`
	HalfDaysOff          int `json:"half_days_off"`
	ShiftsRemoved        int `json:"shifts_removed"`
	FinalMaxAvailability int `json:"final_max_availability"`
}

func newAvailabilityBreakdown(settings *domain.SystemSettings, weekStart domain.Date, nonWorking []*domain.NonWorkingDay) availabilityBreakdown {
	b := availabilityBreakdown{
		BaseWorkdays: len(settings.Workdays),
		BaseShifts:   len(settings.Workdays) * 2,
	}
	for _, nwd := range nonWorking {
		if !settings.Workdays.Contains(nwd.Date.Weekday()) {
			continue
		}
		if nwd.IsFullDay {
			b.FullDaysOff++
		} else {
			b.HalfDaysOff++
		}
	}
	b.ShiftsRemoved = b.FullDaysOff*2 + b.HalfDaysOff
	b.FinalMaxAvailability = scheduler.MaxAvailability(settings, weekStart, nonWorking)
	return b
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	if !h.guardConfigurable(w, r, guard) {
		return
	}

	var req struct {
		AvailableShifts *int `json:"available_shifts"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "available_shifts must be a non-negative integer")
		return
	}
	if req.AvailableShifts == nil {
		h.errorResponse(w, r, http.StatusBadRequest, "available_shifts is required")
		return
	}
	shifts := *req.AvailableShifts
	if shifts < 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "available_shifts must be a non-negative integer")
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !h.configurationOpen(w, r, settings) {
		return
	}

	nonWorking, err := h.store.ListNonWorkingDaysBetween(*settings.NextWeekStart, *settings.NextWeekEnd)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	breakdown := newAvailabilityBreakdown(settings, *settings.NextWeekStart, nonWorking)
	if shifts > breakdown.FinalMaxAvailability {
		h.errorWithData(w, r, http.StatusBadRequest,
			fmt.Sprintf("availability cannot exceed %d shifts for this week", breakdown.FinalMaxAvailability),
			map[string]any{
				"max_availability": breakdown.FinalMaxAvailability,
				"requested":        shifts,
				"breakdown":        breakdown,
			})
		return
	}

	periods, err := h.store.ListWorkPeriods(guard.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	templateCount := 0
	for _, wp := range periods {
		if wp.IsTemplate {
			templateCount++
		}
	}

	data := map[string]any{}
	if templateCount > 0 && templateCount < shifts {
		if err := h.store.DeleteTemplateWorkPeriods(guard.ID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		data["warning"] = fmt.Sprintf("your saved template was deleted because availability is now %d and the template had %d work periods, please set new work periods", shifts, templateCount)
	}

	now := h.now()
	if err := h.store.UpdateGuardAvailability(guard.ID, shifts, now); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	guard.Availability = &shifts
	guard.AvailabilityUpdatedAt = &now
	data["guard"] = guard

	h.successResponse(w, r, "availability updated", data)
}

func (h *Handler) SetWorkPeriods(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	if !h.guardConfigurable(w, r, guard) {
		return
	}

	var req struct {
		Periods []struct {
			DayOfWeek *int             `json:"day_of_week"`
			ShiftType domain.ShiftType `json:"shift_type"`
		} `json:"periods"`
		SaveForFutureWeeks bool `json:"save_for_future_weeks"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if len(req.Periods) == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "periods must be a non-empty list")
		return
	}

	keys := make([]domain.PeriodKey, 0, len(req.Periods))
	for _, p := range req.Periods {
		if p.DayOfWeek == nil || *p.DayOfWeek < 0 || *p.DayOfWeek > 6 {
			h.errorResponse(w, r, http.StatusBadRequest, "day_of_week must be between 0 (Monday) and 6 (Sunday)")
			return
		}
		if !p.ShiftType.Valid() {
			h.errorResponse(w, r, http.StatusBadRequest, "shift_type must be morning or afternoon")
			return
		}
		key := domain.PeriodKey{Day: *p.DayOfWeek, Shift: p.ShiftType}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}

	if guard.AvailabilityValue() == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "set your availability before choosing work periods")
		return
	}
	if len(keys) < guard.AvailabilityValue() {
		h.errorResponse(w, r, http.StatusBadRequest,
			fmt.Sprintf("you need at least %d work periods to match your availability, got %d", guard.AvailabilityValue(), len(keys)))
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !h.configurationOpen(w, r, settings) {
		return
	}

	saved, err := h.store.ReplaceWorkPeriods(guard.ID, keys, req.SaveForFutureWeeks, *settings.NextWeekStart)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "work periods saved", map[string]any{
		"periods":     saved,
		"is_template": req.SaveForFutureWeeks,
	})
}

// resolvedPeriods returns the work periods that apply to next week.
func (h *Handler) resolvedPeriods(guardID int64, settings *domain.SystemSettings) ([]*domain.WorkPeriod, error) {
	periods, err := h.store.ListWorkPeriods(guardID)
	if err != nil {
		return nil, err
	}
	return scheduler.ResolveWorkPeriods(periods, *settings.NextWeekStart), nil
}

// nextWeekPositionsOn lists next week's positions that fall on one of days.
func (h *Handler) nextWeekPositionsOn(settings *domain.SystemSettings, days []int) ([]*domain.Position, error) {
	positions, err := h.store.ListPositions(settings.NextWeekStart, settings.NextWeekEnd)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if slices.Contains(days, p.Date.Weekday()) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (h *Handler) SetExhibitionPreferences(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	if !h.guardConfigurable(w, r, guard) {
		return
	}

	var req struct {
		ExhibitionIDs  []int64 `json:"exhibition_ids"`
		SaveAsTemplate bool    `json:"save_as_template"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !h.configurationOpen(w, r, settings) {
		return
	}

	if len(req.ExhibitionIDs) == 0 {
		if err := h.store.DeleteExhibitionPreferences(guard.ID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "exhibition preferences cleared", map[string]any{"preference": nil})
		return
	}

	periods, err := h.resolvedPeriods(guard.ID, settings)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(periods) == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "set your work periods before ranking exhibitions")
		return
	}

	positions, err := h.nextWeekPositionsOn(settings, scheduler.WorkDays(periods))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	expected := scheduler.ExhibitionSet(positions)
	missing, extra := utils.SetDiff(expected, req.ExhibitionIDs)
	if len(missing) > 0 || len(extra) > 0 || len(req.ExhibitionIDs) != len(expected) {
		h.errorWithData(w, r, http.StatusBadRequest, "exhibition preferences must rank every available exhibition exactly once", map[string]any{
			"expected_count": len(expected),
			"received_count": len(req.ExhibitionIDs),
			"missing":        missing,
			"extra":          extra,
		})
		return
	}

	pref := &domain.ExhibitionPreference{
		GuardID:         guard.ID,
		ExhibitionOrder: req.ExhibitionIDs,
		IsTemplate:      req.SaveAsTemplate,
	}
	if !req.SaveAsTemplate {
		pref.NextWeekStart = settings.NextWeekStart
	}
	if err := h.store.SaveExhibitionPreference(pref); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "exhibition preferences saved", map[string]any{"preference": pref})
}

func (h *Handler) SetDayPreferences(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	if !h.guardConfigurable(w, r, guard) {
		return
	}

	var req struct {
		DayOfWeekList  []int `json:"day_of_week_list"`
		SaveAsTemplate bool  `json:"save_as_template"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !h.configurationOpen(w, r, settings) {
		return
	}

	if len(req.DayOfWeekList) == 0 {
		if err := h.store.DeleteDayPreferences(guard.ID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "day preferences cleared", map[string]any{"preference": nil})
		return
	}

	periods, err := h.resolvedPeriods(guard.ID, settings)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(periods) == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "set your work periods before ranking days")
		return
	}

	expected := scheduler.WorkDays(periods)
	missing, extra := utils.SetDiff(expected, req.DayOfWeekList)
	if len(missing) > 0 || len(extra) > 0 || len(req.DayOfWeekList) != len(expected) {
		h.errorWithData(w, r, http.StatusBadRequest, "day preferences must rank every work day exactly once", map[string]any{
			"expected_count": len(expected),
			"received_count": len(req.DayOfWeekList),
			"missing":        missing,
			"extra":          extra,
		})
		return
	}

	pref := &domain.DayPreference{
		GuardID:    guard.ID,
		DayOrder:   req.DayOfWeekList,
		IsTemplate: req.SaveAsTemplate,
	}
	if !req.SaveAsTemplate {
		pref.NextWeekStart = settings.NextWeekStart
	}
	if err := h.store.SaveDayPreference(pref); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "day preferences saved", map[string]any{"preference": pref})
}

type namedDay struct {
	DayOfWeek int    `json:"day_of_week"`
	Name      string `json:"name"`
}

// previewAllowed lets admins and the guard themselves read the preference options.
func (h *Handler) previewAllowed(w http.ResponseWriter, r *http.Request, guard *domain.Guard) (*domain.SystemSettings, bool) {
	me := currentUser(r.Context())
	if !me.IsAdmin() && guard.UserID != me.ID {
		h.forbidden(w, r, "you can only see your own options")
		return nil, false
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return nil, false
	}
	if !settings.NextWeekSet() {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "next week period is not set yet")
		return nil, false
	}
	return settings, true
}

func (h *Handler) AvailableDays(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	settings, ok := h.previewAllowed(w, r, guard)
	if !ok {
		return
	}

	periods, err := h.resolvedPeriods(guard.ID, settings)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(periods) == 0 {
		h.successResponse(w, r, "guard has no work periods", map[string]any{"days": []int{}})
		return
	}

	days := scheduler.WorkDays(periods)
	detailed := make([]namedDay, 0, len(days))
	for _, d := range days {
		detailed = append(detailed, namedDay{DayOfWeek: d, Name: domain.WeekdayNames[d]})
	}

	h.successResponse(w, r, "available days retrieved", map[string]any{
		"days":          days,
		"days_detailed": detailed,
		"count":         len(days),
	})
}

type exhibitionOption struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	NumberOfPositions int    `json:"number_of_positions"`
}

func (h *Handler) AvailableExhibitions(w http.ResponseWriter, r *http.Request) {
	guard := r.Context().Value(GuardInfoCtx).(*domain.Guard)
	settings, ok := h.previewAllowed(w, r, guard)
	if !ok {
		return
	}

	periods, err := h.resolvedPeriods(guard.ID, settings)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(periods) == 0 {
		h.successResponse(w, r, "guard has no work periods", map[string]any{
			"exhibitions":    []exhibitionOption{},
			"exhibition_ids": []int64{},
		})
		return
	}

	positions, err := h.nextWeekPositionsOn(settings, scheduler.WorkDays(periods))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ids := scheduler.ExhibitionSet(positions)
	options := make([]exhibitionOption, 0, len(ids))
	for _, id := range ids {
		for _, p := range positions {
			if p.ExhibitionID == id && p.Exhibition != nil {
				options = append(options, exhibitionOption{ID: id, Name: p.Exhibition.Name, NumberOfPositions: p.Exhibition.NumberOfPositions})
				break
			}
		}
	}

	h.successResponse(w, r, "available exhibitions retrieved", map[string]any{
		"exhibitions":    options,
		"exhibition_ids": ids,
		"count":          len(ids),
	})
}

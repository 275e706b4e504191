package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

const emptyActionLabel = "empty"

type pointSummary struct {
	Points      float64 `json:"points"`
	Explanation string  `json:"explanation"`
}

type positionBrief struct {
	ID         int64        `json:"id"`
	Exhibition string       `json:"exhibition"`
	Date       domain.Date  `json:"date"`
	StartTime  domain.Clock `json:"start_time"`
	EndTime    domain.Clock `json:"end_time"`
}

func briefOf(p *domain.Position) positionBrief {
	b := positionBrief{ID: p.ID, Date: p.Date, StartTime: p.StartTime, EndTime: p.EndTime}
	if p.Exhibition != nil {
		b.Exhibition = p.Exhibition.Name
	}
	return b
}

func exhibitionName(p *domain.Position) string {
	if p.Exhibition == nil {
		return ""
	}
	return p.Exhibition.Name
}

// ListHistory shows admins the whole trail and guards their own rows.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	var guardID *int64
	if me.IsAdmin() {
		if id, ok := queryInt64(r, "guard_id"); ok {
			guardID = &id
		}
	} else {
		guard, err := h.store.GetGuardByUserID(me.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		guardID = &guard.ID
	}

	history, err := h.store.ListHistory(guardID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "position history retrieved", history)
}

type scheduleEntry struct {
	Position       *domain.Position `json:"position"`
	Guard          *domain.Guard    `json:"guard"`
	IsTaken        bool             `json:"is_taken"`
	LastAction     string           `json:"last_action"`
	LastActionTime *time.Time       `json:"last_action_time"`
}

type weekSchedule struct {
	WeekStart domain.Date     `json:"week_start"`
	WeekEnd   domain.Date     `json:"week_end"`
	Positions []scheduleEntry `json:"positions"`
}

func (h *Handler) buildWeekSchedule(start, end domain.Date) (*weekSchedule, error) {
	states, err := h.store.ListPositionStates(start, end)
	if err != nil {
		return nil, err
	}

	out := &weekSchedule{WeekStart: start, WeekEnd: end, Positions: make([]scheduleEntry, 0, len(states))}
	for _, s := range states {
		entry := scheduleEntry{Position: s.Position, LastAction: emptyActionLabel}
		if s.Latest != nil {
			entry.IsTaken = s.Taken()
			entry.LastAction = string(s.Latest.Action)
			entry.LastActionTime = &s.Latest.ActionTime
			if entry.IsTaken {
				entry.Guard = s.Guard
			}
		}
		out.Positions = append(out.Positions, entry)
	}
	return out, nil
}

func (h *Handler) serveWeekSchedule(w http.ResponseWriter, r *http.Request, start, end *domain.Date, key string, ttl time.Duration) {
	if start == nil || end == nil {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "week period is not set yet, the weekly task has to run first")
		return
	}

	schedule := &weekSchedule{}
	found, err := h.cache.Get(r.Context(), key, schedule)
	if err != nil {
		slog.Warn("failed to read schedule from cache", "key", key, "error", err)
	}
	if !found {
		schedule, err = h.buildWeekSchedule(*start, *end)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if err := h.cache.Set(r.Context(), key, schedule, ttl); err != nil {
			slog.Warn("failed to cache schedule", "key", key, "error", err)
		}
	}

	h.successResponse(w, r, "schedule retrieved", schedule)
}

func (h *Handler) ThisWeekSchedule(w http.ResponseWriter, r *http.Request) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !settings.ThisWeekSet() {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "this week period is not set yet, the weekly task has to run first")
		return
	}
	h.serveWeekSchedule(w, r, settings.ThisWeekStart, settings.ThisWeekEnd, cache.ThisWeekScheduleKey(*settings.ThisWeekStart), cache.ThisWeekScheduleTTL)
}

func (h *Handler) NextWeekSchedule(w http.ResponseWriter, r *http.Request) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !settings.NextWeekSet() {
		h.errorResponse(w, r, http.StatusServiceUnavailable, "next week period is not set yet, the weekly task has to run first")
		return
	}
	h.serveWeekSchedule(w, r, settings.NextWeekStart, settings.NextWeekEnd, cache.NextWeekScheduleKey(*settings.NextWeekStart), cache.NextWeekScheduleTTL)
}

func (h *Handler) invalidateSchedules(r *http.Request) {
	if err := cache.InvalidateSchedules(r.Context(), h.cache); err != nil {
		slog.Warn("failed to invalidate schedule cache", "error", err)
	}
}

// actingGuard resolves whose assignment is being changed: the guard_id in the
// body for admins, the caller's own profile for guards.
func (h *Handler) actingGuard(me *domain.User, guardID *int64) (*domain.Guard, error) {
	if me.IsAdmin() {
		if guardID == nil {
			return nil, newAPIError(http.StatusBadRequest, "guard_id is required for admin actions", nil)
		}
		guard, err := h.store.GetGuardByID(*guardID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, newAPIError(http.StatusNotFound, "guard not found", nil)
			}
			return nil, err
		}
		if guard.User != nil && !guard.User.IsActive {
			return nil, newAPIError(http.StatusBadRequest, "selected guard is not active", nil)
		}
		return guard, nil
	}

	guard, err := h.store.GetGuardByUserID(me.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newAPIError(http.StatusBadRequest, "guard profile not found for current user", nil)
		}
		return nil, err
	}
	return guard, nil
}

// scheduleWindowError rejects changes to next week before manual assignment opens.
func scheduleWindowError(period scheduler.WeekPeriod, windows *scheduler.Windows, now time.Time) error {
	if period != scheduler.PeriodNextWeek {
		return nil
	}
	if windows == nil {
		return newAPIError(http.StatusServiceUnavailable, "manual assignment window is not initialised yet, the weekly task has to run first", nil)
	}
	if now.Before(windows.ManualStart) {
		return newAPIError(http.StatusForbidden, "manual assignment for next week is not open yet", map[string]string{
			"manual_assignment_window_opens_at": windows.ManualStart.Format(time.RFC3339),
		})
	}
	return nil
}

// afterManualWindow tells whether rewards and penalties apply to a change in period.
func afterManualWindow(period scheduler.WeekPeriod, windows *scheduler.Windows, now time.Time) bool {
	switch period {
	case scheduler.PeriodThisWeek:
		return true
	case scheduler.PeriodNextWeek:
		return windows != nil && !now.Before(windows.ManualEnd)
	}
	return false
}

type assignmentRequest struct {
	GuardID *int64 `json:"guard_id"`
}

func (h *Handler) readAssignmentRequest(r *http.Request) (*assignmentRequest, error) {
	req := &assignmentRequest{}
	if err := h.readJSON(r, req); err != nil && !errors.Is(err, io.EOF) {
		return nil, newAPIError(http.StatusBadRequest, "guard_id must be an integer value", nil)
	}
	return req, nil
}

func (h *Handler) positionIDParam(r *http.Request) (int64, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return 0, newAPIError(http.StatusBadRequest, "invalid position id", nil)
	}
	return id, nil
}

func lockedPositionError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return newAPIError(http.StatusNotFound, "position not found", nil)
	}
	return err
}

// AssignPosition takes a free or cancelled position for a guard while holding
// the position's row lock.
func (h *Handler) AssignPosition(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	positionID, err := h.positionIDParam(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	req, err := h.readAssignmentRequest(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	guard, err := h.actingGuard(me, req.GuardID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	windows, _ := scheduler.ComputeWindows(settings, h.loc)
	now := h.now().In(h.loc)

	var (
		history = &domain.PositionHistory{}
		reward  *pointSummary
	)
	err = h.store.WithLockedPosition(positionID, func(p *domain.Position, tx repository.PositionWriter) error {
		period := scheduler.PeriodOf(settings, p.Date)
		if period == scheduler.PeriodNone {
			return newAPIError(http.StatusBadRequest, "position is not part of the current or next week scheduling window", nil)
		}
		if !now.Before(p.StartsAt(h.loc)) {
			return newAPIError(http.StatusBadRequest, "cannot assign a position that already started", nil)
		}

		sameDay, err := tx.HeldPositions(guard.ID, p.Date, p.Date)
		if err != nil {
			return err
		}
		for _, other := range sameDay {
			if other.ID != p.ID && other.Overlaps(p) {
				return newAPIError(http.StatusConflict,
					fmt.Sprintf("time conflict: you are already assigned to %s from %s to %s on this date", exhibitionName(other), other.StartTime, other.EndTime),
					map[string]any{"conflicting_position": briefOf(other)})
			}
		}

		if err := scheduleWindowError(period, windows, now); err != nil {
			return err
		}

		if windows != nil && windows.InGrace(now) && settings.NextWeekSet() {
			held, err := tx.HeldPositions(guard.ID, *settings.NextWeekStart, *settings.NextWeekEnd)
			if err != nil {
				return err
			}
			minimum := settings.MinimalNumberOfPositionsInWeek
			if len(held) >= minimum {
				return newAPIError(http.StatusForbidden,
					fmt.Sprintf("grace period restriction: you have %d positions (minimum %d), you cannot assign more during the first hour", len(held), minimum),
					map[string]any{
						"grace_period_ends_at":    windows.GraceEnd.Format(time.RFC3339),
						"your_assigned_positions": len(held),
						"minimum_required":        minimum,
					})
			}
		}

		latest, err := tx.LatestHistory(p.ID)
		if err != nil {
			return err
		}
		switch {
		case latest != nil && latest.Action.Holds():
			return newAPIError(http.StatusConflict, "position is already taken", nil)
		case latest != nil && latest.Action != domain.ActionCanceled:
			return newAPIError(http.StatusConflict, "position is not currently available", nil)
		}

		history.PositionID = p.ID
		history.GuardID = guard.ID
		history.Action = domain.ActionAssigned
		if latest != nil {
			history.Action = domain.ActionReplaced
		}
		if err := tx.CreateHistory(history); err != nil {
			return err
		}

		if history.Action == domain.ActionReplaced && afterManualWindow(period, windows, now) {
			point := &domain.Point{
				GuardID:     guard.ID,
				Points:      settings.AwardForJumpingInOnCancelledPosition,
				Explanation: fmt.Sprintf("Award for jumping in on cancelled position (%s, %s)", exhibitionName(p), p.Date),
			}
			if err := tx.CreatePoint(point); err != nil {
				return err
			}
			reward = &pointSummary{Points: point.Points, Explanation: point.Explanation}
		}
		return nil
	})
	if err != nil {
		h.handleError(w, r, lockedPositionError(err))
		return
	}

	h.invalidateSchedules(r)
	slog.Info("position assigned", "guard_id", guard.ID, "position_id", positionID, "action", history.Action, "by_user", me.ID)

	h.createdResponse(w, r, "position successfully assigned", map[string]any{
		"history":        history,
		"reward_applied": reward,
	})
}

func cancellationPenalty(settings *domain.SystemSettings, p *domain.Position, today domain.Date, explain func(sameDay bool) string) *domain.Point {
	sameDay := p.Date == today
	points := settings.PenaltyForCancellationBeforePositionDay
	if sameDay {
		points = settings.PenaltyForCancellationOnPositionDay
	}
	return &domain.Point{Points: points, Explanation: explain(sameDay)}
}

// CancelPosition releases a held position. Guards cancel their own positions;
// admins name the holder in guard_id.
func (h *Handler) CancelPosition(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	positionID, err := h.positionIDParam(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	req, err := h.readAssignmentRequest(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var requester *domain.Guard
	if !me.IsAdmin() {
		requester, err = h.actingGuard(me, nil)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	windows, _ := scheduler.ComputeWindows(settings, h.loc)
	now := h.now().In(h.loc)
	today := domain.DateOf(now)

	var (
		history = &domain.PositionHistory{}
		penalty *pointSummary
	)
	err = h.store.WithLockedPosition(positionID, func(p *domain.Position, tx repository.PositionWriter) error {
		period := scheduler.PeriodOf(settings, p.Date)
		if period == scheduler.PeriodNone {
			return newAPIError(http.StatusBadRequest, "position is not part of the current or next week scheduling window", nil)
		}
		if !now.Before(p.StartsAt(h.loc)) {
			return newAPIError(http.StatusBadRequest, "cannot cancel a position that already started", nil)
		}
		if err := scheduleWindowError(period, windows, now); err != nil {
			return err
		}

		latest, err := tx.LatestHistory(p.ID)
		if err != nil {
			return err
		}
		if latest == nil || !latest.Action.Holds() {
			return newAPIError(http.StatusBadRequest, "position is not currently assigned to any guard", nil)
		}

		if me.IsAdmin() {
			if req.GuardID == nil {
				return newAPIError(http.StatusBadRequest, "guard_id is required for admin cancellations", nil)
			}
			if *req.GuardID != latest.GuardID {
				return newAPIError(http.StatusBadRequest, "provided guard is not assigned to this position", nil)
			}
		} else if requester.ID != latest.GuardID {
			return newAPIError(http.StatusForbidden, "you can only cancel positions you are assigned to", nil)
		}

		history.PositionID = p.ID
		history.GuardID = latest.GuardID
		history.Action = domain.ActionCanceled
		if err := tx.CreateHistory(history); err != nil {
			return err
		}

		if afterManualWindow(period, windows, now) {
			point := cancellationPenalty(settings, p, today, func(sameDay bool) string {
				if sameDay {
					return fmt.Sprintf("Penalty for canceling position on position day (%s, %s)", exhibitionName(p), p.Date)
				}
				return fmt.Sprintf("Penalty for canceling position before position day (%s, %s)", exhibitionName(p), p.Date)
			})
			point.GuardID = latest.GuardID
			if err := tx.CreatePoint(point); err != nil {
				return err
			}
			penalty = &pointSummary{Points: point.Points, Explanation: point.Explanation}
		}
		return nil
	})
	if err != nil {
		h.handleError(w, r, lockedPositionError(err))
		return
	}

	h.invalidateSchedules(r)
	slog.Info("position cancelled", "guard_id", history.GuardID, "position_id", positionID, "by_admin", me.IsAdmin(), "by_user", me.ID)

	h.createdResponse(w, r, "assignment cancelled successfully", map[string]any{
		"history":         history,
		"penalty_applied": penalty,
	})
}

// ReportLateness records the announced-lateness penalty and notifies the admins.
func (h *Handler) ReportLateness(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, "administrators cannot report lateness, only guards can")
		return
	}
	p := r.Context().Value(PositionCtx).(*domain.Position)

	var req struct {
		EstimatedDelayMinutes *int `json:"estimated_delay_minutes" validate:"omitempty,min=0"`
	}
	if err := h.readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	now := h.now().In(h.loc)
	if p.Date != domain.DateOf(now) {
		h.errorResponse(w, r, http.StatusBadRequest, "lateness can only be reported for today's positions")
		return
	}

	latest, err := h.store.GetLatestHistory(p.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if latest == nil || !latest.Action.Holds() {
		h.errorResponse(w, r, http.StatusBadRequest, "no guard is currently assigned to this position")
		return
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if guard.ID != latest.GuardID {
		h.forbidden(w, r, "you can only report lateness for your own positions")
		return
	}

	delayInfo := ""
	if req.EstimatedDelayMinutes != nil && *req.EstimatedDelayMinutes > 0 {
		delayInfo = fmt.Sprintf(" (%d min delay)", *req.EstimatedDelayMinutes)
	}
	point := &domain.Point{
		GuardID:     guard.ID,
		Points:      settings.PenaltyForBeingLateWithNotification,
		Explanation: fmt.Sprintf("Penalty for being late with notification (%s, %s)%s", exhibitionName(p), p.Date, delayInfo),
	}
	if err := h.store.CreatePoint(point); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	admins, err := h.store.GetAdminEmails()
	if err != nil {
		slog.Warn("failed to load admin emails for lateness report", "error", err)
	}
	for _, to := range admins {
		h.sendMail(r.Context(), domain.MailMessage{
			Type: domain.MailLatenessReport,
			To:   to,
			Data: domain.LatenessReportMailData{
				GuardName:      me.FullName(),
				ExhibitionName: exhibitionName(p),
				Date:           p.Date.String(),
				StartTime:      p.StartTime.String(),
				EstimatedDelay: req.EstimatedDelayMinutes,
				PenaltyPoints:  point.Points,
			},
		})
	}

	notified := h.notifyShift(settings, p, me,
		"Guard running late",
		fmt.Sprintf("%s is running late for %s at %s%s.", me.FullName(), exhibitionName(p), p.StartTime, delayInfo),
	)

	h.createdResponse(w, r, "lateness reported successfully", map[string]any{
		"penalty_applied":      pointSummary{Points: point.Points, Explanation: point.Explanation},
		"admins_notified":      len(admins),
		"notification_created": notified,
	})
}

// BulkCancel cancels every position the guard holds in a date range. Only the
// earliest one is penalised, and nothing is when all of them are next week and
// the manual window is still open.
func (h *Handler) BulkCancel(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, "administrators cannot use bulk cancel, only guards can cancel their shifts")
		return
	}

	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		return
	}
	if start.After(end) {
		h.errorResponse(w, r, http.StatusBadRequest, "start_date must be before or equal to end_date")
		return
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	windows, _ := scheduler.ComputeWindows(settings, h.loc)
	now := h.now().In(h.loc)
	today := domain.DateOf(now)

	var (
		cancelled = make([]positionBrief, 0)
		penalty   *pointSummary
	)
	err = h.store.WithPositionWriter(func(tx repository.PositionWriter) error {
		held, err := tx.HeldPositions(guard.ID, start, end)
		if err != nil {
			return err
		}

		targets := make([]*domain.Position, 0, len(held))
		allNextWeek := true
		for _, p := range held {
			if !now.Before(p.StartsAt(h.loc)) {
				continue
			}
			targets = append(targets, p)
			if scheduler.PeriodOf(settings, p.Date) != scheduler.PeriodNextWeek {
				allNextWeek = false
			}
		}
		if len(targets) == 0 {
			return newAPIError(http.StatusBadRequest, "no assigned positions found in the specified date range", nil)
		}

		for _, p := range targets {
			if err := tx.CreateHistory(&domain.PositionHistory{PositionID: p.ID, GuardID: guard.ID, Action: domain.ActionCanceled}); err != nil {
				return err
			}
			cancelled = append(cancelled, briefOf(p))
		}

		inManual := windows != nil && windows.InManual(now)
		if allNextWeek && inManual {
			return nil
		}
		first := targets[0]
		point := cancellationPenalty(settings, first, today, func(sameDay bool) string {
			if sameDay {
				return fmt.Sprintf("Bulk cancel penalty (same day) - First position: %s, %s", exhibitionName(first), first.Date)
			}
			return fmt.Sprintf("Bulk cancel penalty - First position: %s, %s", exhibitionName(first), first.Date)
		})
		point.GuardID = guard.ID
		if err := tx.CreatePoint(point); err != nil {
			return err
		}
		penalty = &pointSummary{Points: point.Points, Explanation: point.Explanation}
		return nil
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.invalidateSchedules(r)
	slog.Info("positions bulk cancelled", "guard_id", guard.ID, "count", len(cancelled))

	h.successResponse(w, r, fmt.Sprintf("successfully cancelled %d position(s)", len(cancelled)), map[string]any{
		"cancelled_count": len(cancelled),
		"penalty_applied": penalty,
		"positions":       cancelled,
	})
}

type workedPosition struct {
	ID             int64        `json:"id"`
	Exhibition     string       `json:"exhibition"`
	Date           domain.Date  `json:"date"`
	DayOfWeek      string       `json:"day_of_week"`
	StartTime      domain.Clock `json:"start_time"`
	EndTime        domain.Clock `json:"end_time"`
	DurationHours  float64      `json:"duration_hours"`
	BaseHourlyRate float64      `json:"base_hourly_rate"`
	HourlyRate     float64      `json:"hourly_rate"`
	IsSunday       bool         `json:"is_sunday"`
	Earnings       float64      `json:"earnings"`
}

// MyWorkHistory reports the positions the caller held in a year or month with
// the earnings computed at the hourly rate in force when each one started.
func (h *Handler) MyWorkHistory(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())

	query := r.URL.Query()
	if query.Get("year") == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "year parameter is required")
		return
	}
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "year must be a valid integer")
		return
	}
	if year < 2020 || year > 2100 {
		h.errorResponse(w, r, http.StatusBadRequest, "year must be between 2020 and 2100")
		return
	}

	from := domain.Date{Year: year, Month: time.January, Day: 1}
	to := domain.Date{Year: year, Month: time.December, Day: 31}
	label := strconv.Itoa(year)
	if m := query.Get("month"); m != "" {
		month, err := strconv.Atoi(m)
		if err != nil || month < 1 || month > 12 {
			h.errorResponse(w, r, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		from = domain.Date{Year: year, Month: time.Month(month), Day: 1}
		to = domain.DateOf(from.In(time.UTC).AddDate(0, 1, -1))
		label = from.In(time.UTC).Format("January 2006")
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	settings, err := h.activeSettings(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	rates, err := h.store.ListHourlyRates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	positions, err := h.store.GetHeldPositions(guard.ID, from, to)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var totalHours, totalEarnings float64
	worked := make([]workedPosition, 0, len(positions))
	for _, p := range positions {
		rate := scheduler.RateAt(rates, p.StartsAt(h.loc), settings.HourlyRate)
		e := scheduler.PositionEarnings(p, rate)
		totalHours += e.DurationHours
		totalEarnings += e.Earnings
		worked = append(worked, workedPosition{
			ID:             p.ID,
			Exhibition:     exhibitionName(p),
			Date:           p.Date,
			DayOfWeek:      domain.WeekdayNames[p.Date.Weekday()],
			StartTime:      p.StartTime,
			EndTime:        p.EndTime,
			DurationHours:  e.DurationHours,
			BaseHourlyRate: e.BaseHourlyRate,
			HourlyRate:     e.HourlyRate,
			IsSunday:       e.IsSunday,
			Earnings:       e.Earnings,
		})
	}

	h.successResponse(w, r, "work history retrieved", map[string]any{
		"period": label,
		"guard": map[string]any{
			"id":        guard.ID,
			"username":  me.Username,
			"full_name": me.FullName(),
		},
		"summary": map[string]any{
			"total_positions": len(worked),
			"total_hours":     domain.Round2(totalHours),
			"total_earnings":  domain.Round2(totalEarnings),
		},
		"positions": worked,
	})
}

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"github.com/museum-staffing/shift-manager/backend/internal/repository"
	"github.com/museum-staffing/shift-manager/backend/internal/scheduler"
)

// swappable is narrower than Holds: positions taken after locking cannot be traded.
func swappable(h *domain.PositionHistory, guardID int64) bool {
	if h == nil || h.GuardID != guardID {
		return false
	}
	switch h.Action {
	case domain.ActionAssigned, domain.ActionReplaced, domain.ActionSwapped:
		return true
	}
	return false
}

// swapParty loads the work periods of a guard and the positions the guard
// holds in the scheduling window that have not started yet.
func (h *Handler) swapParty(guardID int64, settings *domain.SystemSettings, now time.Time) (scheduler.SwapParty, error) {
	party := scheduler.SwapParty{GuardID: guardID}

	periods, err := h.store.ListWorkPeriods(guardID)
	if err != nil {
		return party, err
	}
	party.Periods = periods

	held, err := h.store.GetHeldPositions(guardID, *settings.ThisWeekStart, *settings.NextWeekEnd)
	if err != nil {
		return party, err
	}
	for _, p := range held {
		if now.Before(p.StartsAt(h.loc)) {
			party.Held = append(party.Held, p)
		}
	}
	return party, nil
}

func (h *Handler) swapEligibility(s *domain.SwapRequest, acceptor *domain.Guard, settings *domain.SystemSettings, now time.Time) (*scheduler.SwapEligibility, error) {
	requester, err := h.swapParty(s.RequestingGuardID, settings, now)
	if err != nil {
		return nil, err
	}
	party, err := h.swapParty(acceptor.ID, settings, now)
	if err != nil {
		return nil, err
	}
	return scheduler.CheckSwapEligibility(settings, s.PositionToSwap, requester, party), nil
}

// windowSettings loads the active settings and fails with 503 while the
// scheduling weeks are not initialised.
func (h *Handler) windowSettings(r *http.Request) (*domain.SystemSettings, error) {
	settings, err := h.activeSettings(r.Context())
	if err != nil {
		return nil, err
	}
	if !settings.ThisWeekSet() || !settings.NextWeekSet() {
		return nil, newAPIError(http.StatusServiceUnavailable, "scheduling weeks are not set yet, the weekly task has to run first", nil)
	}
	return settings, nil
}

// RequestSwap puts a held position up for exchange. Next week positions can
// only be offered once the manual assignment window has closed.
func (h *Handler) RequestSwap(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, "administrators cannot request position swaps")
		return
	}
	p := r.Context().Value(PositionCtx).(*domain.Position)

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	settings, err := h.windowSettings(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	windows, _ := scheduler.ComputeWindows(settings, h.loc)
	now := h.now().In(h.loc)

	switch scheduler.PeriodOf(settings, p.Date) {
	case scheduler.PeriodNone:
		h.errorResponse(w, r, http.StatusBadRequest, "position is not part of the current or next week scheduling window")
		return
	case scheduler.PeriodNextWeek:
		if windows == nil || now.Before(windows.ManualEnd) {
			h.errorResponse(w, r, http.StatusBadRequest, "swap requests for next week can only be made after the manual assignment window ends")
			return
		}
	}
	if !now.Before(p.StartsAt(h.loc)) {
		h.errorResponse(w, r, http.StatusBadRequest, "cannot swap a position that already started")
		return
	}

	periods, err := h.store.ListWorkPeriods(guard.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(scheduler.ResolveWorkPeriods(periods, scheduler.MondayOf(p.Date))) == 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "you must configure your work periods for this week before requesting swaps")
		return
	}

	latest, err := h.store.GetLatestHistory(p.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if latest == nil || latest.GuardID != guard.ID || !latest.Action.Holds() {
		h.forbidden(w, r, "you are not assigned to this position")
		return
	}
	if !swappable(latest, guard.ID) {
		h.errorResponse(w, r, http.StatusBadRequest, "position is not in assigned state")
		return
	}

	pending := domain.SwapPending
	mine, err := h.store.ListSwapRequests(domain.SwapFilter{RequestingGuardID: &guard.ID, Status: &pending})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(mine) > 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "you already have an active swap request, cancel it first")
		return
	}
	onPosition, err := h.store.ListSwapRequests(domain.SwapFilter{PositionID: &p.ID, Status: &pending})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(onPosition) > 0 {
		h.errorResponse(w, r, http.StatusBadRequest, "this position already has a pending swap request")
		return
	}

	swap := &domain.SwapRequest{
		RequestingGuardID: guard.ID,
		PositionToSwapID:  p.ID,
		Status:            domain.SwapPending,
		ExpiresAt:         p.StartsAt(h.loc),
		PositionToSwap:    p,
	}
	if err := h.store.CreateSwapRequest(swap); err != nil {
		if constraintViolation(err) != "" {
			h.errorResponse(w, r, http.StatusBadRequest, "a pending swap request already exists for this guard or position")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	slog.Info("swap request created", "swap_request_id", swap.ID, "guard_id", guard.ID, "position_id", p.ID)
	h.createdResponse(w, r, "swap request created successfully", map[string]any{"swap_request": swap})
}

type eligibleSwap struct {
	SwapRequest       *domain.SwapRequest `json:"swap_request"`
	PositionsCanOffer []*domain.Position  `json:"positions_can_offer"`
}

// ListSwapRequests shows admins every request. Guards see the active requests
// of others they could accept, each with the positions they may give back.
func (h *Handler) ListSwapRequests(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.listSwapRequests(w, r, domain.SwapFilter{})
		return
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	settings, err := h.windowSettings(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	now := h.now()

	pending := domain.SwapPending
	active, err := h.store.ListSwapRequests(domain.SwapFilter{Status: &pending, ExpiresAfter: &now})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	out := make([]eligibleSwap, 0)
	for _, s := range active {
		if s.RequestingGuardID == guard.ID {
			continue
		}
		e, err := h.swapEligibility(s, guard, settings, now)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if e.Eligible {
			out = append(out, eligibleSwap{SwapRequest: s, PositionsCanOffer: e.Offers})
		}
	}
	h.successResponse(w, r, "swap requests retrieved", out)
}

func (h *Handler) listSwapRequests(w http.ResponseWriter, r *http.Request, f domain.SwapFilter) {
	swaps, err := h.store.ListSwapRequests(f)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	h.successResponse(w, r, "swap requests retrieved", swaps)
}

func (h *Handler) AllSwapRequests(w http.ResponseWriter, r *http.Request) {
	h.listSwapRequests(w, r, domain.SwapFilter{})
}

func (h *Handler) ActiveSwapRequests(w http.ResponseWriter, r *http.Request) {
	pending := domain.SwapPending
	now := h.now()
	h.listSwapRequests(w, r, domain.SwapFilter{Status: &pending, ExpiresAfter: &now})
}

func (h *Handler) MySwapRequests(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, h.message(msgAdminGuardOnly))
		return
	}
	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.listSwapRequests(w, r, domain.SwapFilter{RequestingGuardID: &guard.ID})
}

func (h *Handler) GetSwapRequest(w http.ResponseWriter, r *http.Request) {
	s := r.Context().Value(SwapRequestCtx).(*domain.SwapRequest)
	h.successResponse(w, r, "swap request retrieved", s)
}

// AcceptSwap trades the requested position for one of the caller's. Both
// history rows, the request update and the requester's notification are
// written in one transaction holding the request's row lock.
func (h *Handler) AcceptSwap(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	if me.IsAdmin() {
		h.forbidden(w, r, h.message(msgAdminGuardOnly))
		return
	}
	swap := r.Context().Value(SwapRequestCtx).(*domain.SwapRequest)

	var req struct {
		PositionID *int64 `json:"position_id"`
	}
	if err := h.readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(w, r, err)
		return
	}
	if req.PositionID == nil {
		h.errorResponse(w, r, http.StatusBadRequest, "position_id is required")
		return
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	now := h.now()
	if !swap.Active(now) {
		h.errorResponse(w, r, http.StatusBadRequest, "swap request is no longer active")
		return
	}

	offered, err := h.store.GetPositionByID(*req.PositionID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "position not found")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	settings, err := h.windowSettings(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	eligibility, err := h.swapEligibility(swap, guard, settings, now)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !eligibility.Eligible {
		h.errorResponse(w, r, http.StatusBadRequest, eligibility.Reason)
		return
	}
	if !eligibility.CanOffer(offered.ID) {
		h.errorResponse(w, r, http.StatusBadRequest, "you cannot offer this position")
		return
	}

	requester, err := h.store.GetGuardByID(swap.RequestingGuardID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	wanted := swap.PositionToSwap

	var accepted *domain.SwapRequest
	err = h.store.WithLockedSwapRequest(swap.ID, func(s *domain.SwapRequest, tx repository.SwapWriter) error {
		if !s.Active(now) {
			return newAPIError(http.StatusBadRequest, "swap is no longer valid, positions have changed", nil)
		}

		first, second := s.PositionToSwapID, offered.ID
		if second < first {
			first, second = second, first
		}
		for _, id := range []int64{first, second} {
			if _, err := tx.LockPosition(id); err != nil {
				return err
			}
		}

		latestWanted, err := tx.LatestHistory(s.PositionToSwapID)
		if err != nil {
			return err
		}
		latestOffered, err := tx.LatestHistory(offered.ID)
		if err != nil {
			return err
		}
		if !swappable(latestWanted, s.RequestingGuardID) || !swappable(latestOffered, guard.ID) {
			return newAPIError(http.StatusBadRequest, "swap is no longer valid, positions have changed", nil)
		}

		for _, row := range []*domain.PositionHistory{
			{PositionID: offered.ID, GuardID: s.RequestingGuardID, Action: domain.ActionSwapped, ActionTime: now},
			{PositionID: s.PositionToSwapID, GuardID: guard.ID, Action: domain.ActionSwapped, ActionTime: now},
		} {
			if err := tx.CreateHistory(row); err != nil {
				return err
			}
		}

		s.Status = domain.SwapAccepted
		s.AcceptedByGuardID = &guard.ID
		s.PositionOfferedID = &offered.ID
		s.AcceptedAt = &now
		if err := tx.UpdateSwapRequest(s); err != nil {
			return err
		}

		accepted = s
		return tx.CreateNotification(&domain.Notification{
			Title:    "Position swap accepted",
			Message:  swapAcceptedMessage(me.FullName(), wanted, offered),
			CastType: domain.CastUnicast,
			ToUserID: &requester.UserID,
		})
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.invalidateSchedules(r)
	slog.Info("swap request accepted",
		"swap_request_id", swap.ID,
		"requesting_guard_id", swap.RequestingGuardID,
		"accepting_guard_id", guard.ID,
		"position_to_swap_id", swap.PositionToSwapID,
		"position_offered_id", offered.ID,
	)

	h.successResponse(w, r, "position swap completed successfully", map[string]any{"swap_request": accepted})
}

func swapAcceptedMessage(acceptor string, given, received *domain.Position) string {
	return fmt.Sprintf("%s accepted your swap.\n\nYou give: %s - %s %s-%s\n\nYou get: %s - %s %s-%s",
		acceptor,
		exhibitionName(given), given.Date, given.StartTime, given.EndTime,
		exhibitionName(received), received.Date, received.StartTime, received.EndTime,
	)
}

// DeleteSwapRequest removes any request for admins. Guards can only cancel
// their own pending requests, which keeps the row.
func (h *Handler) DeleteSwapRequest(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context())
	s := r.Context().Value(SwapRequestCtx).(*domain.SwapRequest)

	if me.IsAdmin() {
		if err := h.store.DeleteSwapRequest(s.ID); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		slog.Info("swap request deleted by admin", "swap_request_id", s.ID, "admin_id", me.ID)
		h.successResponse(w, r, "swap request deleted", nil)
		return
	}

	guard, err := h.actingGuard(me, nil)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if s.RequestingGuardID != guard.ID {
		h.forbidden(w, r, "you can only cancel your own swap requests")
		return
	}
	if s.Status != domain.SwapPending {
		h.errorResponse(w, r, http.StatusBadRequest, "can only cancel pending swap requests")
		return
	}

	s.Status = domain.SwapCancelled
	if err := h.store.UpdateSwapRequest(s); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	slog.Info("swap request cancelled by guard", "swap_request_id", s.ID, "guard_id", guard.ID)
	h.successResponse(w, r, "swap request cancelled successfully", nil)
}

func (h *Handler) SwapRequestImmutable(w http.ResponseWriter, r *http.Request) {
	h.methodNotAllowed(w, r, "swap requests are created through POST /api/positions/{id}/request_swap/ and cannot be updated")
}

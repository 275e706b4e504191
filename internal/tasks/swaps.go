package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// ExpireSwapRequests closes pending swap requests whose position has started.
// A requester still holding the position did not show up for it and gets the
// same-day cancellation penalty.
func (r *Runner) ExpireSwapRequests(ctx context.Context) (int, error) {
	settings, err := r.store.GetActiveSettings()
	if err != nil {
		return 0, fmt.Errorf("failed to load settings: %w", err)
	}

	now := r.now()
	pending := domain.SwapPending
	due, err := r.store.ListSwapRequests(domain.SwapFilter{Status: &pending, ExpiresNotAfter: &now})
	if err != nil {
		return 0, fmt.Errorf("failed to load swap requests: %w", err)
	}

	penalty := func(s *domain.SwapRequest) *domain.Point {
		p := s.PositionToSwap
		return &domain.Point{
			GuardID:     s.RequestingGuardID,
			Points:      settings.PenaltyForCancellationOnPositionDay,
			DateAwarded: now,
			Explanation: fmt.Sprintf("Penalty for no-show: swap request expired for %s on %s %s-%s",
				exhibitionName(p), p.Date, p.StartTime, p.EndTime),
		}
	}

	expired := 0
	for _, s := range due {
		ok, err := r.store.ExpireSwapRequest(s.ID, now, penalty)
		if err != nil {
			return expired, fmt.Errorf("failed to expire swap request %d: %w", s.ID, err)
		}
		if ok {
			expired++
			r.logger.Debug("swap request expired", zap.Int64("swap_request_id", s.ID), zap.Int64("guard_id", s.RequestingGuardID))
		}
	}

	if expired > 0 {
		r.invalidateSchedules(ctx)
	}
	r.logger.Info("swap requests expired", zap.Int("count", expired))
	return expired, nil
}

// FlushExpiredTokens deletes revoked refresh tokens that have expired on their own.
func (r *Runner) FlushExpiredTokens(_ context.Context) (int64, error) {
	n, err := r.store.FlushExpiredTokens(r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to flush token blacklist: %w", err)
	}
	r.logger.Info("expired blacklisted tokens flushed", zap.Int64("deleted", n))
	return n, nil
}

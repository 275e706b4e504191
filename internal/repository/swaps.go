package repository

import (
	"context"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const swapSelect = `
	SELECT
		p.id, p.exhibition_id, p.date, p.start_time, p.end_time,
		e.id, e.name, e.number_of_positions, e.start_date, e.end_date, e.rules, e.is_special_event,
		e.event_start_time, e.event_end_time, e.open_on, e.created_at, e.updated_at,
		s.id, s.requesting_guard_id, s.position_to_swap_id, s.status, s.accepted_by_guard_id,
		s.position_offered_id, s.expires_at, s.accepted_at, s.created_at
	FROM position_swap_requests s
	JOIN positions p ON p.id = s.position_to_swap_id
	JOIN exhibitions e ON e.id = p.exhibition_id
`

func scanSwapRequest(sc scanner) (*domain.SwapRequest, error) {
	s := &domain.SwapRequest{}
	p, err := scanPosition(sc,
		&s.ID, &s.RequestingGuardID, &s.PositionToSwapID, &s.Status, &s.AcceptedByGuardID,
		&s.PositionOfferedID, &s.ExpiresAt, &s.AcceptedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PositionToSwap = p
	return s, nil
}

func (r *Repository) CreateSwapRequest(s *domain.SwapRequest) error {
	query := `
		INSERT INTO position_swap_requests (requesting_guard_id, position_to_swap_id, status, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if s.Status == "" {
		s.Status = domain.SwapPending
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, s.RequestingGuardID, s.PositionToSwapID, s.Status, s.ExpiresAt).Scan(&s.ID, &s.CreatedAt)
}

func (r *Repository) GetSwapRequestByID(id int64) (*domain.SwapRequest, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanSwapRequest(r.dbpool.QueryRowContext(ctx, swapSelect+` WHERE s.id = $1`, id))
}

// ListSwapRequests returns the newest requests first.
func (r *Repository) ListSwapRequests(f domain.SwapFilter) ([]*domain.SwapRequest, error) {
	query := swapSelect + `
		WHERE ($1::BIGINT IS NULL OR s.requesting_guard_id = $1)
		  AND ($2::BIGINT IS NULL OR s.position_to_swap_id = $2)
		  AND ($3::TEXT IS NULL OR s.status = $3)
		  AND ($4::TIMESTAMPTZ IS NULL OR s.expires_at > $4)
		  AND ($5::TIMESTAMPTZ IS NULL OR s.expires_at <= $5)
		ORDER BY s.created_at DESC, s.id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, f.RequestingGuardID, f.PositionID, f.Status, f.ExpiresAfter, f.ExpiresNotAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	swaps := make([]*domain.SwapRequest, 0)
	for rows.Next() {
		s, err := scanSwapRequest(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return swaps, nil
}

func updateSwapRequest(ctx context.Context, q querier, s *domain.SwapRequest) error {
	query := `
		UPDATE position_swap_requests
		SET status = $1, accepted_by_guard_id = $2, position_offered_id = $3, accepted_at = $4
		WHERE id = $5
	`
	_, err := q.ExecContext(ctx, query, s.Status, s.AcceptedByGuardID, s.PositionOfferedID, s.AcceptedAt, s.ID)
	return err
}

func (r *Repository) UpdateSwapRequest(s *domain.SwapRequest) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return updateSwapRequest(ctx, r.dbpool, s)
}

func (r *Repository) DeleteSwapRequest(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM position_swap_requests WHERE id = $1`, id)
	return err
}

func (tx *Tx) LockSwapRequest(id int64) (*domain.SwapRequest, error) {
	return scanSwapRequest(tx.tx.QueryRowContext(tx.ctx, swapSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
}

func (tx *Tx) UpdateSwapRequest(s *domain.SwapRequest) error {
	return updateSwapRequest(tx.ctx, tx.tx, s)
}

// SwapWriter is the part of a transaction used to settle a swap request.
type SwapWriter interface {
	PositionWriter
	LockPosition(id int64) (*domain.Position, error)
	UpdateSwapRequest(s *domain.SwapRequest) error
	CreateNotification(n *domain.Notification) error
}

// WithLockedSwapRequest runs fn while holding the row lock of the request, so
// it is accepted, cancelled or expired exactly once.
func (r *Repository) WithLockedSwapRequest(id int64, fn func(s *domain.SwapRequest, w SwapWriter) error) error {
	return r.WithTx(func(tx *Tx) error {
		s, err := tx.LockSwapRequest(id)
		if err != nil {
			return err
		}
		return fn(s, tx)
	})
}

// ExpireSwapRequest marks a pending request expired and releases its position
// with a cancellation row and the given penalty. It reports false when the
// request was settled in the meantime.
func (r *Repository) ExpireSwapRequest(id int64, now time.Time, penalty func(s *domain.SwapRequest) *domain.Point) (bool, error) {
	expired := false
	err := r.WithLockedSwapRequest(id, func(s *domain.SwapRequest, w SwapWriter) error {
		if s.Status != domain.SwapPending || s.ExpiresAt.After(now) {
			return nil
		}
		s.Status = domain.SwapExpired
		if err := w.UpdateSwapRequest(s); err != nil {
			return err
		}

		latest, err := w.LatestHistory(s.PositionToSwapID)
		if err != nil {
			return err
		}
		if latest == nil || latest.GuardID != s.RequestingGuardID || !latest.Action.Holds() {
			expired = true
			return nil
		}
		if err := w.CreateHistory(&domain.PositionHistory{
			PositionID: s.PositionToSwapID,
			GuardID:    s.RequestingGuardID,
			Action:     domain.ActionCanceled,
			ActionTime: now,
		}); err != nil {
			return err
		}
		if p := penalty(s); p != nil {
			if err := w.CreatePoint(p); err != nil {
				return err
			}
		}
		expired = true
		return nil
	})
	return expired, err
}

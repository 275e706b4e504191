package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

func createHistory(ctx context.Context, q querier, h *domain.PositionHistory) error {
	query := `
		INSERT INTO position_history (position_id, guard_id, action, action_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if h.ActionTime.IsZero() {
		h.ActionTime = time.Now()
	}
	return q.QueryRowContext(ctx, query, h.PositionID, h.GuardID, h.Action, h.ActionTime).Scan(&h.ID)
}

func latestHistory(ctx context.Context, q querier, positionID int64) (*domain.PositionHistory, error) {
	query := `
		SELECT id, position_id, guard_id, action, action_time
		FROM position_history
		WHERE position_id = $1
		ORDER BY action_time DESC, id DESC
		LIMIT 1
	`
	h := &domain.PositionHistory{}
	err := q.QueryRowContext(ctx, query, positionID).Scan(&h.ID, &h.PositionID, &h.GuardID, &h.Action, &h.ActionTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

// heldPositions lists the positions in [from, to] whose latest history row
// leaves them with the given guard.
func heldPositions(ctx context.Context, q querier, guardID int64, from, to domain.Date) ([]*domain.Position, error) {
	query := positionSelect + `
		JOIN LATERAL (
			SELECT guard_id, action
			FROM position_history
			WHERE position_id = p.id
			ORDER BY action_time DESC, id DESC
			LIMIT 1
		) h ON TRUE
		WHERE p.date BETWEEN $1 AND $2
		  AND h.guard_id = $3
		  AND h.action IN ('ASSIGNED', 'REPLACED', 'SWAPPED', 'TAKEN_AFTER_LOCKING')
		ORDER BY p.date, p.start_time, p.id
	`

	rows, err := q.QueryContext(ctx, query, from, to, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *Repository) CreateHistory(h *domain.PositionHistory) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return createHistory(ctx, r.dbpool, h)
}

// CreateHistories appends a batch of rows atomically.
func (r *Repository) CreateHistories(rows []*domain.PositionHistory) error {
	return r.WithTx(func(tx *Tx) error {
		for _, h := range rows {
			if err := createHistory(tx.ctx, tx.tx, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetLatestHistory(positionID int64) (*domain.PositionHistory, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return latestHistory(ctx, r.dbpool, positionID)
}

func (r *Repository) GetHeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return heldPositions(ctx, r.dbpool, guardID, from, to)
}

// ListHistory returns every row, or only the guard's rows when guardID is set.
func (r *Repository) ListHistory(guardID *int64) ([]*domain.PositionHistory, error) {
	query := `
		SELECT id, position_id, guard_id, action, action_time
		FROM position_history
		WHERE $1::BIGINT IS NULL OR guard_id = $1
		ORDER BY action_time DESC, id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*domain.PositionHistory, 0)
	for rows.Next() {
		h := &domain.PositionHistory{}
		if err := rows.Scan(&h.ID, &h.PositionID, &h.GuardID, &h.Action, &h.ActionTime); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// LockPosition loads the position and blocks concurrent writers until the transaction ends.
func (tx *Tx) LockPosition(id int64) (*domain.Position, error) {
	return scanPosition(tx.tx.QueryRowContext(tx.ctx, positionSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
}

func (tx *Tx) LatestHistory(positionID int64) (*domain.PositionHistory, error) {
	return latestHistory(tx.ctx, tx.tx, positionID)
}

func (tx *Tx) CreateHistory(h *domain.PositionHistory) error {
	return createHistory(tx.ctx, tx.tx, h)
}

func (tx *Tx) HeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error) {
	return heldPositions(tx.ctx, tx.tx, guardID, from, to)
}

func (tx *Tx) CreatePoint(p *domain.Point) error {
	return createPoint(tx.ctx, tx.tx, p)
}

// PositionWriter is the part of a transaction used by manual assignment and cancellation.
type PositionWriter interface {
	LatestHistory(positionID int64) (*domain.PositionHistory, error)
	HeldPositions(guardID int64, from, to domain.Date) ([]*domain.Position, error)
	CreateHistory(h *domain.PositionHistory) error
	CreatePoint(p *domain.Point) error
}

// WithLockedPosition runs fn while holding the row lock of the position.
// fn returning an error rolls everything back.
func (r *Repository) WithLockedPosition(id int64, fn func(p *domain.Position, w PositionWriter) error) error {
	return r.WithTx(func(tx *Tx) error {
		p, err := tx.LockPosition(id)
		if err != nil {
			return err
		}
		return fn(p, tx)
	})
}

func (r *Repository) WithPositionWriter(fn func(w PositionWriter) error) error {
	return r.WithTx(func(tx *Tx) error {
		return fn(tx)
	})
}

package repository

import (
	"context"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

func createPoint(ctx context.Context, q querier, p *domain.Point) error {
	query := `
		INSERT INTO points (guard_id, points, date_awarded, explanation)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	p.Points = domain.Round2(p.Points)
	if p.DateAwarded.IsZero() {
		p.DateAwarded = time.Now()
	}
	return q.QueryRowContext(ctx, query, p.GuardID, p.Points, p.DateAwarded, p.Explanation).Scan(&p.ID)
}

func (r *Repository) CreatePoint(p *domain.Point) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return createPoint(ctx, r.dbpool, p)
}

func (r *Repository) GetPointByID(id int64) (*domain.Point, error) {
	query := `SELECT id, guard_id, points, date_awarded, explanation FROM points WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	p := &domain.Point{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.GuardID, &p.Points, &p.DateAwarded, &p.Explanation); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) ListPoints(guardID *int64) ([]*domain.Point, error) {
	query := `
		SELECT id, guard_id, points, date_awarded, explanation
		FROM points
		WHERE $1::BIGINT IS NULL OR guard_id = $1
		ORDER BY date_awarded DESC, id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]*domain.Point, 0)
	for rows.Next() {
		p := &domain.Point{}
		if err := rows.Scan(&p.ID, &p.GuardID, &p.Points, &p.DateAwarded, &p.Explanation); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return points, nil
}

func (r *Repository) DeletePoint(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM points WHERE id = $1`, id)
	return err
}

// PointTotals sums points per guard for entries awarded in [from, to).
// Guards without entries are absent from the result.
func (r *Repository) PointTotals(from, to time.Time) (map[int64]float64, error) {
	query := `
		SELECT guard_id, SUM(points)
		FROM points
		WHERE date_awarded >= $1 AND date_awarded < $2
		GROUP BY guard_id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int64]float64)
	for rows.Next() {
		var (
			guardID int64
			sum     float64
		)
		if err := rows.Scan(&guardID, &sum); err != nil {
			return nil, err
		}
		totals[guardID] = sum
	}

	return totals, rows.Err()
}

// HasPointsSince reports whether an entry containing the explanation fragment
// was awarded at or after since.
func (r *Repository) HasPointsSince(fragment string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM points WHERE explanation LIKE '%' || $1 || '%' AND date_awarded >= $2
		)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var exists bool
	err := r.dbpool.QueryRowContext(ctx, query, fragment, since).Scan(&exists)
	return exists, err
}

package repository

import (
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const nonWorkingDayColumns = `id, date, is_full_day, non_working_shift, reason, created_at`

func scanNonWorkingDay(s scanner) (*domain.NonWorkingDay, error) {
	d := &domain.NonWorkingDay{}
	if err := s.Scan(&d.ID, &d.Date, &d.IsFullDay, &d.NonWorkingShift, &d.Reason, &d.CreatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateNonWorkingDay stores the day and deletes, in the same transaction,
// every position on that date for which affects returns true. It returns the
// number of deleted positions.
func (r *Repository) CreateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error) {
	deleted := 0
	err := r.WithTx(func(tx *Tx) error {
		query := `
			INSERT INTO non_working_days (date, is_full_day, non_working_shift, reason)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		if err := tx.tx.QueryRowContext(tx.ctx, query, d.Date, d.IsFullDay, d.NonWorkingShift, d.Reason).Scan(&d.ID, &d.CreatedAt); err != nil {
			return err
		}

		n, err := tx.deleteAffectedPositions(d, affects)
		deleted = n
		return err
	})
	return deleted, err
}

func (tx *Tx) deleteAffectedPositions(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error) {
	rows, err := tx.tx.QueryContext(tx.ctx, positionSelect+` WHERE p.date = $1 FOR UPDATE OF p`, d.Date)
	if err != nil {
		return 0, err
	}

	ids := make([]int64, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		if affects(p) {
			ids = append(ids, p.ID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := tx.tx.ExecContext(tx.ctx, `DELETE FROM positions WHERE id = $1`, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (r *Repository) GetNonWorkingDayByID(id int64) (*domain.NonWorkingDay, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanNonWorkingDay(r.dbpool.QueryRowContext(ctx, `SELECT `+nonWorkingDayColumns+` FROM non_working_days WHERE id = $1`, id))
}

// ListNonWorkingDays returns every day, or only days on or after from when set.
func (r *Repository) ListNonWorkingDays(from *domain.Date) ([]*domain.NonWorkingDay, error) {
	query := `
		SELECT ` + nonWorkingDayColumns + `
		FROM non_working_days
		WHERE $1::DATE IS NULL OR date >= $1
		ORDER BY date, id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]*domain.NonWorkingDay, 0)
	for rows.Next() {
		d, err := scanNonWorkingDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

// ListNonWorkingDaysBetween is inclusive on both ends.
func (r *Repository) ListNonWorkingDaysBetween(from, to domain.Date) ([]*domain.NonWorkingDay, error) {
	query := `SELECT ` + nonWorkingDayColumns + ` FROM non_working_days WHERE date BETWEEN $1 AND $2 ORDER BY date, id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]*domain.NonWorkingDay, 0)
	for rows.Next() {
		d, err := scanNonWorkingDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

// UpdateNonWorkingDay saves the new values and deletes positions the updated
// day now covers.
func (r *Repository) UpdateNonWorkingDay(d *domain.NonWorkingDay, affects func(*domain.Position) bool) (int, error) {
	deleted := 0
	err := r.WithTx(func(tx *Tx) error {
		query := `
			UPDATE non_working_days
			SET date = $1, is_full_day = $2, non_working_shift = $3, reason = $4
			WHERE id = $5
			RETURNING created_at
		`
		if err := tx.tx.QueryRowContext(tx.ctx, query, d.Date, d.IsFullDay, d.NonWorkingShift, d.Reason, d.ID).Scan(&d.CreatedAt); err != nil {
			return err
		}

		n, err := tx.deleteAffectedPositions(d, affects)
		deleted = n
		return err
	})
	return deleted, err
}

func (r *Repository) DeleteNonWorkingDay(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM non_working_days WHERE id = $1`, id)
	return err
}

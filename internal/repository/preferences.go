package repository

import (
	"context"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

func (r *Repository) ListWorkPeriods(guardID int64) ([]*domain.WorkPeriod, error) {
	return r.listWorkPeriods(`SELECT `+workPeriodColumns+` FROM guard_work_periods WHERE guard_id = $1 ORDER BY day_of_week, shift_type`, guardID)
}

const workPeriodColumns = `id, guard_id, day_of_week, shift_type, is_template, next_week_start, created_at`

func (r *Repository) listWorkPeriods(query string, args ...any) ([]*domain.WorkPeriod, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]*domain.WorkPeriod, 0)
	for rows.Next() {
		wp := &domain.WorkPeriod{}
		dst := []any{&wp.ID, &wp.GuardID, &wp.DayOfWeek, &wp.ShiftType, &wp.IsTemplate, &wp.NextWeekStart, &wp.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		periods = append(periods, wp)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return periods, nil
}

// ListTemplateWorkPeriods returns every template row, grouped by guard.
func (r *Repository) ListTemplateWorkPeriods() ([]*domain.WorkPeriod, error) {
	return r.listWorkPeriods(`SELECT ` + workPeriodColumns + ` FROM guard_work_periods WHERE is_template ORDER BY guard_id, day_of_week, shift_type`)
}

// CarryForwardWorkPeriods copies the template rows to the given week as a new
// template and turns the old rows into plain history.
func (r *Repository) CarryForwardWorkPeriods(periods []*domain.WorkPeriod, weekStart domain.Date) error {
	return r.WithTx(func(tx *Tx) error {
		insert := `
			INSERT INTO guard_work_periods (guard_id, day_of_week, shift_type, is_template, next_week_start)
			VALUES ($1, $2, $3, TRUE, $4)
		`
		for _, wp := range periods {
			if _, err := tx.tx.ExecContext(tx.ctx, insert, wp.GuardID, wp.DayOfWeek, wp.ShiftType, weekStart); err != nil {
				return err
			}
			if _, err := tx.tx.ExecContext(tx.ctx, `UPDATE guard_work_periods SET is_template = FALSE WHERE id = $1`, wp.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RetireWorkPeriods clears the template flag. A nil weekStart keeps each row's week.
func (r *Repository) RetireWorkPeriods(ids []int64, weekStart *domain.Date) error {
	return r.WithTx(func(tx *Tx) error {
		query := `UPDATE guard_work_periods SET is_template = FALSE, next_week_start = COALESCE($2::DATE, next_week_start) WHERE id = $1`
		for _, id := range ids {
			if _, err := tx.tx.ExecContext(tx.ctx, query, id, weekStart); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteWorkPeriodsBefore removes non-template rows of weeks starting before d.
func (r *Repository) DeleteWorkPeriodsBefore(d domain.Date) (int64, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_work_periods WHERE NOT is_template AND next_week_start < $1`, d)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RetireExhibitionPreference turns a template into a preference of the given week only.
func (r *Repository) RetireExhibitionPreference(id int64, weekStart domain.Date) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `UPDATE guard_exhibition_preferences SET is_template = FALSE, next_week_start = $2 WHERE id = $1`, id, weekStart)
	return err
}

func (r *Repository) RetireDayPreference(id int64, weekStart domain.Date) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `UPDATE guard_day_preferences SET is_template = FALSE, next_week_start = $2 WHERE id = $1`, id, weekStart)
	return err
}

func (r *Repository) DeleteTemplateWorkPeriods(guardID int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_work_periods WHERE guard_id = $1 AND is_template`, guardID)
	return err
}

func deletePreferences(ctx context.Context, q querier, guardID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM guard_exhibition_preferences WHERE guard_id = $1`, guardID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM guard_day_preferences WHERE guard_id = $1`, guardID)
	return err
}

// ReplaceWorkPeriods stores a new set of periods for the guard, all tagged with
// the week they were set for, replacing the template and that week's rows.
// Any exhibition or day preference is cleared since it was built on the old days.
func (r *Repository) ReplaceWorkPeriods(guardID int64, periods []domain.PeriodKey, isTemplate bool, nextWeekStart domain.Date) ([]*domain.WorkPeriod, error) {
	created := make([]*domain.WorkPeriod, 0, len(periods))

	err := r.WithTx(func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(tx.ctx, `DELETE FROM guard_work_periods WHERE guard_id = $1 AND (is_template OR next_week_start = $2)`, guardID, nextWeekStart); err != nil {
			return err
		}

		weekStart := &nextWeekStart

		query := `
			INSERT INTO guard_work_periods (guard_id, day_of_week, shift_type, is_template, next_week_start)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		for _, p := range periods {
			wp := &domain.WorkPeriod{GuardID: guardID, DayOfWeek: p.Day, ShiftType: p.Shift, IsTemplate: isTemplate, NextWeekStart: weekStart}
			if err := tx.tx.QueryRowContext(tx.ctx, query, guardID, p.Day, p.Shift, isTemplate, weekStart).Scan(&wp.ID, &wp.CreatedAt); err != nil {
				return err
			}
			created = append(created, wp)
		}

		return deletePreferences(tx.ctx, tx.tx, guardID)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *Repository) ListExhibitionPreferences(guardID *int64) ([]*domain.ExhibitionPreference, error) {
	query := `
		SELECT id, guard_id, exhibition_order, is_template, next_week_start, created_at
		FROM guard_exhibition_preferences
		WHERE $1::BIGINT IS NULL OR guard_id = $1
		ORDER BY guard_id, is_template, created_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make([]*domain.ExhibitionPreference, 0)
	for rows.Next() {
		p := &domain.ExhibitionPreference{}
		dst := []any{&p.ID, &p.GuardID, &p.ExhibitionOrder, &p.IsTemplate, &p.NextWeekStart, &p.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return prefs, nil
}

// SaveExhibitionPreference replaces the guard's preference of the same kind
// (template or week-specific). Any save also drops the old template.
func (r *Repository) SaveExhibitionPreference(p *domain.ExhibitionPreference) error {
	return r.WithTx(func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(tx.ctx, `DELETE FROM guard_exhibition_preferences WHERE guard_id = $1 AND (is_template OR is_template = $2)`, p.GuardID, p.IsTemplate); err != nil {
			return err
		}
		query := `
			INSERT INTO guard_exhibition_preferences (guard_id, exhibition_order, is_template, next_week_start)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		return tx.tx.QueryRowContext(tx.ctx, query, p.GuardID, p.ExhibitionOrder, p.IsTemplate, p.NextWeekStart).Scan(&p.ID, &p.CreatedAt)
	})
}

func (r *Repository) DeleteExhibitionPreferences(guardID int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_exhibition_preferences WHERE guard_id = $1`, guardID)
	return err
}

func (r *Repository) DeleteExhibitionPreference(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_exhibition_preferences WHERE id = $1`, id)
	return err
}

func (r *Repository) ListDayPreferences(guardID *int64) ([]*domain.DayPreference, error) {
	query := `
		SELECT id, guard_id, day_order, is_template, next_week_start, created_at
		FROM guard_day_preferences
		WHERE $1::BIGINT IS NULL OR guard_id = $1
		ORDER BY guard_id, is_template, created_at DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, guardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make([]*domain.DayPreference, 0)
	for rows.Next() {
		p := &domain.DayPreference{}
		dst := []any{&p.ID, &p.GuardID, &p.DayOrder, &p.IsTemplate, &p.NextWeekStart, &p.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return prefs, nil
}

func (r *Repository) SaveDayPreference(p *domain.DayPreference) error {
	return r.WithTx(func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(tx.ctx, `DELETE FROM guard_day_preferences WHERE guard_id = $1 AND (is_template OR is_template = $2)`, p.GuardID, p.IsTemplate); err != nil {
			return err
		}
		query := `
			INSERT INTO guard_day_preferences (guard_id, day_order, is_template, next_week_start)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`
		return tx.tx.QueryRowContext(tx.ctx, query, p.GuardID, p.DayOrder, p.IsTemplate, p.NextWeekStart).Scan(&p.ID, &p.CreatedAt)
	})
}

func (r *Repository) DeleteDayPreferences(guardID int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_day_preferences WHERE guard_id = $1`, guardID)
	return err
}

func (r *Repository) DeleteDayPreference(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM guard_day_preferences WHERE id = $1`, id)
	return err
}

package repository

import (
	"context"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const settingsColumns = `
	id, workdays, this_week_start, this_week_end, next_week_start, next_week_end,
	day_for_assignments, time_of_assignments,
	weekday_morning_start, weekday_morning_end, weekday_afternoon_start, weekday_afternoon_end,
	weekend_morning_start, weekend_morning_end, weekend_afternoon_start, weekend_afternoon_end,
	minimal_number_of_positions_in_week, points_life_weeks,
	award_for_position_completion, award_for_sunday_position_completion, award_for_jumping_in_on_cancelled_position,
	penalty_for_being_late_with_notification, penalty_for_being_late_without_notification,
	penalty_for_position_cancellation_on_the_position_day, penalty_for_position_cancellation_before_the_position_day,
	penalty_for_assigning_less_then_minimal_positions,
	hourly_rate, created_at, updated_by, is_active, version
`

func settingsFields(s *domain.SystemSettings) []any {
	return []any{
		&s.Workdays, &s.ThisWeekStart, &s.ThisWeekEnd, &s.NextWeekStart, &s.NextWeekEnd,
		&s.DayForAssignments, &s.TimeOfAssignments,
		&s.WeekdayMorningStart, &s.WeekdayMorningEnd, &s.WeekdayAfternoonStart, &s.WeekdayAfternoonEnd,
		&s.WeekendMorningStart, &s.WeekendMorningEnd, &s.WeekendAfternoonStart, &s.WeekendAfternoonEnd,
		&s.MinimalNumberOfPositionsInWeek, &s.PointsLifeWeeks,
		&s.AwardForPositionCompletion, &s.AwardForSundayPositionCompletion, &s.AwardForJumpingInOnCancelledPosition,
		&s.PenaltyForBeingLateWithNotification, &s.PenaltyForBeingLateWithoutNotification,
		&s.PenaltyForCancellationOnPositionDay, &s.PenaltyForCancellationBeforePositionDay,
		&s.PenaltyForAssigningLessThanMinimal,
		&s.HourlyRate,
	}
}

func scanSettings(sc scanner) (*domain.SystemSettings, error) {
	s := &domain.SystemSettings{}
	dst := append([]any{&s.ID}, settingsFields(s)...)
	dst = append(dst, &s.CreatedAt, &s.UpdatedByID, &s.IsActive, &s.Version)
	if err := sc.Scan(dst...); err != nil {
		return nil, err
	}
	return s, nil
}

func settingsArgs(s *domain.SystemSettings) []any {
	return []any{
		s.Workdays, s.ThisWeekStart, s.ThisWeekEnd, s.NextWeekStart, s.NextWeekEnd,
		s.DayForAssignments, s.TimeOfAssignments,
		s.WeekdayMorningStart, s.WeekdayMorningEnd, s.WeekdayAfternoonStart, s.WeekdayAfternoonEnd,
		s.WeekendMorningStart, s.WeekendMorningEnd, s.WeekendAfternoonStart, s.WeekendAfternoonEnd,
		s.MinimalNumberOfPositionsInWeek, s.PointsLifeWeeks,
		s.AwardForPositionCompletion, s.AwardForSundayPositionCompletion, s.AwardForJumpingInOnCancelledPosition,
		s.PenaltyForBeingLateWithNotification, s.PenaltyForBeingLateWithoutNotification,
		s.PenaltyForCancellationOnPositionDay, s.PenaltyForCancellationBeforePositionDay,
		s.PenaltyForAssigningLessThanMinimal,
		s.HourlyRate, s.UpdatedByID,
	}
}

// GetActiveSettings returns sql.ErrNoRows when no version has been stored yet.
func (r *Repository) GetActiveSettings() (*domain.SystemSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM system_settings WHERE is_active ORDER BY created_at DESC, id DESC LIMIT 1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanSettings(r.dbpool.QueryRowContext(ctx, query))
}

func (r *Repository) GetSettingsByID(id int64) (*domain.SystemSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM system_settings WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanSettings(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) ListSettings() ([]*domain.SystemSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM system_settings ORDER BY created_at DESC, id DESC`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.SystemSettings, 0)
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// CreateSettingsVersion stores s as the new active version, deactivating the
// previous ones, and records an hourly rate history entry when the rate changed.
func (r *Repository) CreateSettingsVersion(s *domain.SystemSettings) error {
	return r.WithTx(func(tx *Tx) error {
		var previousRate *float64
		if err := tx.tx.QueryRowContext(tx.ctx, `SELECT hourly_rate FROM system_settings WHERE is_active ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&previousRate); err != nil && !isNoRows(err) {
			return err
		}

		if _, err := tx.tx.ExecContext(tx.ctx, `UPDATE system_settings SET is_active = FALSE WHERE is_active`); err != nil {
			return err
		}

		query := `
			INSERT INTO system_settings (
				workdays, this_week_start, this_week_end, next_week_start, next_week_end,
				day_for_assignments, time_of_assignments,
				weekday_morning_start, weekday_morning_end, weekday_afternoon_start, weekday_afternoon_end,
				weekend_morning_start, weekend_morning_end, weekend_afternoon_start, weekend_afternoon_end,
				minimal_number_of_positions_in_week, points_life_weeks,
				award_for_position_completion, award_for_sunday_position_completion, award_for_jumping_in_on_cancelled_position,
				penalty_for_being_late_with_notification, penalty_for_being_late_without_notification,
				penalty_for_position_cancellation_on_the_position_day, penalty_for_position_cancellation_before_the_position_day,
				penalty_for_assigning_less_then_minimal_positions,
				hourly_rate, updated_by, is_active
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, TRUE)
			RETURNING id, created_at, is_active, version
		`
		if err := tx.tx.QueryRowContext(tx.ctx, query, settingsArgs(s)...).Scan(&s.ID, &s.CreatedAt, &s.IsActive, &s.Version); err != nil {
			return err
		}

		if previousRate == nil || *previousRate != s.HourlyRate {
			return createHourlyRate(tx.ctx, tx.tx, &domain.HourlyRate{
				Rate:          s.HourlyRate,
				EffectiveFrom: s.CreatedAt,
				ChangedByID:   s.UpdatedByID,
			})
		}
		return nil
	})
}

// UpdateSettingsInPlace is used by background tasks for week boundaries and the
// weekly minimum; it does not create a new version.
func (r *Repository) UpdateSettingsInPlace(s *domain.SystemSettings) error {
	query := `
		UPDATE system_settings
		SET
			this_week_start = $1,
			this_week_end = $2,
			next_week_start = $3,
			next_week_end = $4,
			minimal_number_of_positions_in_week = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{s.ThisWeekStart, s.ThisWeekEnd, s.NextWeekStart, s.NextWeekEnd, s.MinimalNumberOfPositionsInWeek, s.ID, s.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.Version); err != nil {
		if isNoRows(err) {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

func createHourlyRate(ctx context.Context, q querier, h *domain.HourlyRate) error {
	query := `
		INSERT INTO hourly_rate_history (hourly_rate, effective_from, changed_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return q.QueryRowContext(ctx, query, h.Rate, h.EffectiveFrom, h.ChangedByID).Scan(&h.ID, &h.CreatedAt)
}

// ListHourlyRates is ordered by effective_from ascending.
func (r *Repository) ListHourlyRates() ([]*domain.HourlyRate, error) {
	query := `SELECT id, hourly_rate, effective_from, changed_by, created_at FROM hourly_rate_history ORDER BY effective_from, id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.HourlyRate, 0)
	for rows.Next() {
		h := &domain.HourlyRate{}
		if err := rows.Scan(&h.ID, &h.Rate, &h.EffectiveFrom, &h.ChangedByID, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	return out, rows.Err()
}

func (r *Repository) GetHourlyRateByID(id int64) (*domain.HourlyRate, error) {
	query := `SELECT id, hourly_rate, effective_from, changed_by, created_at FROM hourly_rate_history WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	h := &domain.HourlyRate{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&h.ID, &h.Rate, &h.EffectiveFrom, &h.ChangedByID, &h.CreatedAt); err != nil {
		return nil, err
	}
	return h, nil
}

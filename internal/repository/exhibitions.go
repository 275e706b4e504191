package repository

import (
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const exhibitionColumns = `id, name, number_of_positions, start_date, end_date, rules, is_special_event, event_start_time, event_end_time, open_on, created_at, updated_at`

func scanExhibition(s scanner) (*domain.Exhibition, error) {
	e := &domain.Exhibition{}
	dst := []any{
		&e.ID, &e.Name, &e.NumberOfPositions, &e.StartDate, &e.EndDate, &e.Rules, &e.IsSpecialEvent,
		&e.EventStartTime, &e.EventEndTime, &e.OpenOn, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repository) CreateExhibition(e *domain.Exhibition) error {
	query := `
		INSERT INTO exhibitions (name, number_of_positions, start_date, end_date, rules, is_special_event, event_start_time, event_end_time, open_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{e.Name, e.NumberOfPositions, e.StartDate, e.EndDate, e.Rules, e.IsSpecialEvent, e.EventStartTime, e.EventEndTime, e.OpenOn}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *Repository) GetExhibitionByID(id int64) (*domain.Exhibition, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanExhibition(r.dbpool.QueryRowContext(ctx, `SELECT `+exhibitionColumns+` FROM exhibitions WHERE id = $1`, id))
}

func (r *Repository) listExhibitions(query string, args ...any) ([]*domain.Exhibition, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exhibitions := make([]*domain.Exhibition, 0)
	for rows.Next() {
		e, err := scanExhibition(rows)
		if err != nil {
			return nil, err
		}
		exhibitions = append(exhibitions, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exhibitions, nil
}

func (r *Repository) GetAllExhibitions() ([]*domain.Exhibition, error) {
	return r.listExhibitions(`SELECT ` + exhibitionColumns + ` FROM exhibitions ORDER BY start_date, id`)
}

// GetExhibitionsOverlapping returns exhibitions running at any point of [from, to).
func (r *Repository) GetExhibitionsOverlapping(from, to time.Time) ([]*domain.Exhibition, error) {
	query := `SELECT ` + exhibitionColumns + ` FROM exhibitions WHERE start_date < $2 AND end_date >= $1 ORDER BY id`
	return r.listExhibitions(query, from, to)
}

func (r *Repository) UpdateExhibition(e *domain.Exhibition) error {
	query := `
		UPDATE exhibitions
		SET
			name = $1,
			number_of_positions = $2,
			start_date = $3,
			end_date = $4,
			rules = $5,
			is_special_event = $6,
			event_start_time = $7,
			event_end_time = $8,
			open_on = $9,
			updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{e.Name, e.NumberOfPositions, e.StartDate, e.EndDate, e.Rules, e.IsSpecialEvent, e.EventStartTime, e.EventEndTime, e.OpenOn, e.ID}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&e.UpdatedAt)
}

func (r *Repository) DeleteExhibition(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM exhibitions WHERE id = $1`, id)
	return err
}

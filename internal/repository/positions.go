package repository

import (
	"database/sql"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const positionSelect = `
	SELECT
		p.id, p.exhibition_id, p.date, p.start_time, p.end_time,
		e.id, e.name, e.number_of_positions, e.start_date, e.end_date, e.rules, e.is_special_event,
		e.event_start_time, e.event_end_time, e.open_on, e.created_at, e.updated_at
	FROM positions p
	JOIN exhibitions e ON e.id = p.exhibition_id
`

func scanPosition(s scanner, extra ...any) (*domain.Position, error) {
	p := &domain.Position{Exhibition: &domain.Exhibition{}}
	e := p.Exhibition
	dst := []any{
		&p.ID, &p.ExhibitionID, &p.Date, &p.StartTime, &p.EndTime,
		&e.ID, &e.Name, &e.NumberOfPositions, &e.StartDate, &e.EndDate, &e.Rules, &e.IsSpecialEvent,
		&e.EventStartTime, &e.EventEndTime, &e.OpenOn, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := s.Scan(append(dst, extra...)...); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) CreatePosition(p *domain.Position) error {
	query := `
		INSERT INTO positions (exhibition_id, date, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, p.ExhibitionID, p.Date, p.StartTime, p.EndTime).Scan(&p.ID)
}

// CreatePositions inserts the whole batch in one transaction.
func (r *Repository) CreatePositions(positions []*domain.Position) error {
	return r.WithTx(func(tx *Tx) error {
		query := `
			INSERT INTO positions (exhibition_id, date, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		for _, p := range positions {
			if err := tx.tx.QueryRowContext(tx.ctx, query, p.ExhibitionID, p.Date, p.StartTime, p.EndTime).Scan(&p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetPositionByID(id int64) (*domain.Position, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanPosition(r.dbpool.QueryRowContext(ctx, positionSelect+` WHERE p.id = $1`, id))
}

// ListPositions filters by an optional inclusive date range.
func (r *Repository) ListPositions(from, to *domain.Date) ([]*domain.Position, error) {
	query := positionSelect + `
		WHERE ($1::DATE IS NULL OR p.date >= $1)
		  AND ($2::DATE IS NULL OR p.date <= $2)
		ORDER BY p.date, p.start_time, e.name, p.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
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

func (r *Repository) UpdatePosition(p *domain.Position) error {
	query := `
		UPDATE positions
		SET exhibition_id = $1, date = $2, start_time = $3, end_time = $4, updated_at = NOW()
		WHERE id = $5
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, p.ExhibitionID, p.Date, p.StartTime, p.EndTime, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) DeletePosition(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	return err
}

const positionStateSelect = `
	SELECT
		p.id, p.exhibition_id, p.date, p.start_time, p.end_time,
		e.id, e.name, e.number_of_positions, e.start_date, e.end_date, e.rules, e.is_special_event,
		e.event_start_time, e.event_end_time, e.open_on, e.created_at, e.updated_at,
		h.id, h.guard_id, h.action, h.action_time,
		g.user_id, u.username, u.first_name, u.last_name, u.email
	FROM positions p
	JOIN exhibitions e ON e.id = p.exhibition_id
	LEFT JOIN LATERAL (
		SELECT id, guard_id, action, action_time
		FROM position_history
		WHERE position_id = p.id
		ORDER BY action_time DESC, id DESC
		LIMIT 1
	) h ON TRUE
	LEFT JOIN guards g ON g.id = h.guard_id
	LEFT JOIN users u ON u.id = g.user_id
`

func scanPositionState(s scanner) (*domain.PositionState, error) {
	var row struct {
		HistoryID  sql.NullInt64
		GuardID    sql.NullInt64
		Action     sql.NullString
		ActionTime sql.NullTime
		UserID     sql.NullInt64
		Username   sql.NullString
		FirstName  sql.NullString
		LastName   sql.NullString
		Email      sql.NullString
	}

	p, err := scanPosition(s,
		&row.HistoryID, &row.GuardID, &row.Action, &row.ActionTime,
		&row.UserID, &row.Username, &row.FirstName, &row.LastName, &row.Email,
	)
	if err != nil {
		return nil, err
	}

	state := &domain.PositionState{Position: p}
	if row.HistoryID.Valid {
		state.Latest = &domain.PositionHistory{
			ID:         row.HistoryID.Int64,
			PositionID: p.ID,
			GuardID:    row.GuardID.Int64,
			Action:     domain.Action(row.Action.String),
			ActionTime: row.ActionTime.Time,
		}
		state.Guard = &domain.Guard{
			ID:     row.GuardID.Int64,
			UserID: row.UserID.Int64,
			User: &domain.User{
				ID:        row.UserID.Int64,
				Username:  row.Username.String,
				FirstName: row.FirstName.String,
				LastName:  row.LastName.String,
				Email:     row.Email.String,
			},
		}
	}
	return state, nil
}

// ListPositionStates returns positions in [from, to] with their latest history row,
// ordered by date, start time and exhibition name.
func (r *Repository) ListPositionStates(from, to domain.Date) ([]*domain.PositionState, error) {
	query := positionStateSelect + `
		WHERE p.date BETWEEN $1 AND $2
		ORDER BY p.date, p.start_time, e.name, p.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]*domain.PositionState, 0)
	for rows.Next() {
		state, err := scanPositionState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return states, nil
}

// CountPositionsWithoutHistory counts positions in [from, to] nobody ever touched.
func (r *Repository) CountPositionsWithoutHistory(from, to domain.Date) (int, error) {
	query := `
		SELECT COUNT(*) FROM positions p
		WHERE p.date BETWEEN $1 AND $2
		  AND NOT EXISTS (SELECT 1 FROM position_history h WHERE h.position_id = p.id)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var n int
	err := r.dbpool.QueryRowContext(ctx, query, from, to).Scan(&n)
	return n, err
}

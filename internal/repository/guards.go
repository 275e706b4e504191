package repository

import (
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const guardSelect = `
	SELECT
		g.id, g.user_id, g.priority_number, g.availability, g.availability_updated_at,
		u.id, u.username, u.password_hash, u.email, u.first_name, u.last_name, u.role, u.is_active,
		u.is_staff, u.is_superuser, u.date_joined, u.last_login, u.updated_at, u.version
	FROM guards g
	JOIN users u ON u.id = g.user_id
`

func scanGuard(s scanner) (*domain.Guard, error) {
	g := &domain.Guard{User: &domain.User{}}
	u := g.User
	dst := []any{
		&g.ID, &g.UserID, &g.PriorityNumber, &g.Availability, &g.AvailabilityUpdatedAt,
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.IsActive,
		&u.IsStaff, &u.IsSuperuser, &u.DateJoined, &u.LastLogin, &u.UpdatedAt, &u.Version,
	}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *Repository) listGuards(query string, args ...any) ([]*domain.Guard, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guards := make([]*domain.Guard, 0)
	for rows.Next() {
		g, err := scanGuard(rows)
		if err != nil {
			return nil, err
		}
		guards = append(guards, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return guards, nil
}

func (r *Repository) GetGuardByID(id int64) (*domain.Guard, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanGuard(r.dbpool.QueryRowContext(ctx, guardSelect+` WHERE g.id = $1`, id))
}

func (r *Repository) GetGuardByUserID(userID int64) (*domain.Guard, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanGuard(r.dbpool.QueryRowContext(ctx, guardSelect+` WHERE g.user_id = $1`, userID))
}

func (r *Repository) GetActiveGuards() ([]*domain.Guard, error) {
	return r.listGuards(guardSelect + ` WHERE u.is_active AND u.role = 'guard' ORDER BY g.id`)
}

// GetGuardsWithAvailabilityUpdated returns the active guards that submitted a
// positive availability inside [from, to], highest priority first.
func (r *Repository) GetGuardsWithAvailabilityUpdated(from, to time.Time) ([]*domain.Guard, error) {
	query := guardSelect + `
		WHERE u.is_active AND u.role = 'guard'
		  AND g.availability > 0
		  AND g.availability_updated_at BETWEEN $1 AND $2
		ORDER BY g.priority_number DESC NULLS LAST, g.id
	`
	return r.listGuards(query, from, to)
}

func (r *Repository) UpdateGuardAvailability(guardID int64, availability int, at time.Time) error {
	query := `UPDATE guards SET availability = $1, availability_updated_at = $2 WHERE id = $3`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, availability, at, guardID)
	return err
}

func (r *Repository) UpdateGuardPriority(guardID int64, priority float64) error {
	query := `UPDATE guards SET priority_number = $1 WHERE id = $2`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, priority, guardID)
	return err
}

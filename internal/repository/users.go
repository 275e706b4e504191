package repository

import (
	"context"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const userColumns = `id, username, password_hash, email, first_name, last_name, role, is_active, is_staff, is_superuser, date_joined, last_login, updated_at, version`

func scanUser(s scanner, user *domain.User) error {
	dst := []any{
		&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FirstName, &user.LastName,
		&user.Role, &user.IsActive, &user.IsStaff, &user.IsSuperuser, &user.DateJoined, &user.LastLogin,
		&user.UpdatedAt, &user.Version,
	}
	return s.Scan(dst...)
}

// initialPriorityExpr averages the existing priorities, defaulting to 1.00.
const initialPriorityExpr = `(SELECT COALESCE(ROUND(AVG(priority_number), 2), 1.00) FROM guards WHERE priority_number IS NOT NULL)`

func ensureGuardProfile(ctx context.Context, q querier, userID int64) error {
	query := `
		INSERT INTO guards (user_id, priority_number)
		VALUES ($1, ` + initialPriorityExpr + `)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := q.ExecContext(ctx, query, userID)
	return err
}

// CreateUser inserts the user, creates the guard profile for guards and adds
// non-superuser admins to the museum admin group when that group exists.
func (r *Repository) CreateUser(user *domain.User) error {
	user.EnforceRole()

	return r.WithTx(func(tx *Tx) error {
		query := `
			INSERT INTO users (username, password_hash, email, first_name, last_name, role, is_active, is_staff, is_superuser)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, date_joined, updated_at, version
		`
		args := []any{user.Username, user.PasswordHash, user.Email, user.FirstName, user.LastName, user.Role, user.IsActive, user.IsStaff, user.IsSuperuser}
		dst := []any{&user.ID, &user.DateJoined, &user.UpdatedAt, &user.Version}
		if err := tx.tx.QueryRowContext(tx.ctx, query, args...).Scan(dst...); err != nil {
			return err
		}

		switch {
		case user.Role == domain.RoleGuard:
			if err := ensureGuardProfile(tx.ctx, tx.tx, user.ID); err != nil {
				return err
			}
		case user.Role == domain.RoleAdmin && !user.IsSuperuser:
			query := `
				INSERT INTO user_groups (user_id, group_id)
				SELECT $1, id FROM groups WHERE name = $2
				ON CONFLICT DO NOTHING
			`
			if _, err := tx.tx.ExecContext(tx.ctx, query, user.ID, domain.MuseumAdminGroup); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{}
	if err := scanUser(r.dbpool.QueryRowContext(ctx, query, id), user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{}
	if err := scanUser(r.dbpool.QueryRowContext(ctx, query, username), user); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetAllUsers(includeInactive bool) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active OR $1 ORDER BY id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		if err := scanUser(rows, user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// UpdateUser writes every mutable column with optimistic locking on version.
func (r *Repository) UpdateUser(user *domain.User) error {
	user.EnforceRole()

	return r.WithTx(func(tx *Tx) error {
		query := `
			UPDATE users
			SET
				username = $1,
				password_hash = $2,
				email = $3,
				first_name = $4,
				last_name = $5,
				role = $6,
				is_active = $7,
				is_staff = $8,
				is_superuser = $9,
				updated_at = NOW(),
				version = version + 1
			WHERE id = $10 AND version = $11
			RETURNING updated_at, version
		`
		args := []any{
			user.Username, user.PasswordHash, user.Email, user.FirstName, user.LastName,
			user.Role, user.IsActive, user.IsStaff, user.IsSuperuser, user.ID, user.Version,
		}
		if err := tx.tx.QueryRowContext(tx.ctx, query, args...).Scan(&user.UpdatedAt, &user.Version); err != nil {
			if isNoRows(err) {
				return ErrVersionConflict
			}
			return err
		}

		if user.Role == domain.RoleGuard {
			return ensureGuardProfile(tx.ctx, tx.tx, user.ID)
		}
		return nil
	})
}

// DeactivateUser is the soft delete used by the API.
func (r *Repository) DeactivateUser(id int64) error {
	query := `
		UPDATE users SET is_active = FALSE, updated_at = NOW(), version = version + 1 WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

func (r *Repository) UpdateLastLogin(id int64, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, at, id)
	return err
}

func (r *Repository) GetAdminEmails() ([]string, error) {
	query := `SELECT email FROM users WHERE role = 'admin' AND is_active AND email <> '' ORDER BY id`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}

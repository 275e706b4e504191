package repository

import (
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

// UpsertGroup creates the group when missing and replaces its permission set.
// It reports whether the group was newly created.
func (r *Repository) UpsertGroup(g *domain.Group) (bool, error) {
	created := false
	err := r.WithTx(func(tx *Tx) error {
		query := `
			INSERT INTO groups (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, (xmax = 0)
		`
		if err := tx.tx.QueryRowContext(tx.ctx, query, g.Name).Scan(&g.ID, &created); err != nil {
			return err
		}

		if _, err := tx.tx.ExecContext(tx.ctx, `DELETE FROM group_permissions WHERE group_id = $1`, g.ID); err != nil {
			return err
		}

		for _, perm := range g.Permissions {
			if _, err := tx.tx.ExecContext(tx.ctx, `INSERT INTO group_permissions (group_id, permission) VALUES ($1, $2)`, g.ID, perm); err != nil {
				return err
			}
		}
		return nil
	})
	return created, err
}

func (r *Repository) GetGroupByName(name string) (*domain.Group, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	g := &domain.Group{Permissions: make([]string, 0)}
	if err := r.dbpool.QueryRowContext(ctx, `SELECT id, name FROM groups WHERE name = $1`, name).Scan(&g.ID, &g.Name); err != nil {
		return nil, err
	}

	rows, err := r.dbpool.QueryContext(ctx, `SELECT permission FROM group_permissions WHERE group_id = $1 ORDER BY permission`, g.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		g.Permissions = append(g.Permissions, perm)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return g, nil
}

// AddAdminsToGroup puts every active non-superuser admin into the group.
func (r *Repository) AddAdminsToGroup(groupID int64) (int64, error) {
	query := `
		INSERT INTO user_groups (user_id, group_id)
		SELECT id, $1 FROM users WHERE role = 'admin' AND NOT is_superuser AND is_active
		ON CONFLICT DO NOTHING
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, groupID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

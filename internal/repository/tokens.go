package repository

import "time"

// BlacklistToken revokes a refresh token by its JWT ID. Revoking the same
// token twice is not an error.
func (r *Repository) BlacklistToken(jti string, userID int64, expiresAt time.Time) error {
	query := `
		INSERT INTO token_blacklist (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`

	var owner *int64
	if userID > 0 {
		owner = &userID
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, jti, owner, expiresAt)
	return err
}

func (r *Repository) IsTokenBlacklisted(jti string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`

	ctx, cancel := r.queryContext()
	defer cancel()

	var exists bool
	err := r.dbpool.QueryRowContext(ctx, query, jti).Scan(&exists)
	return exists, err
}

// FlushExpiredTokens drops entries whose token would be rejected as expired anyway.
func (r *Repository) FlushExpiredTokens(now time.Time) (int64, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

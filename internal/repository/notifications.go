package repository

import (
	"context"
	"time"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const notificationSelect = `
	SELECT id, created_by_id, title, message, cast_type, to_user_id, notification_date,
		shift_type, exhibition_id, expires_at, created_at, updated_at
	FROM notifications
`

func scanNotification(s scanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := s.Scan(&n.ID, &n.CreatedByID, &n.Title, &n.Message, &n.CastType, &n.ToUserID, &n.NotificationDate,
		&n.ShiftType, &n.ExhibitionID, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func createNotification(ctx context.Context, q querier, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (created_by_id, title, message, cast_type, to_user_id, notification_date,
			shift_type, exhibition_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	return q.QueryRowContext(ctx, query, n.CreatedByID, n.Title, n.Message, n.CastType, n.ToUserID, n.NotificationDate,
		n.ShiftType, n.ExhibitionID, n.ExpiresAt).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (r *Repository) CreateNotification(n *domain.Notification) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return createNotification(ctx, r.dbpool, n)
}

func (tx *Tx) CreateNotification(n *domain.Notification) error {
	return createNotification(tx.ctx, tx.tx, n)
}

func (r *Repository) GetNotificationByID(id int64) (*domain.Notification, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanNotification(r.dbpool.QueryRowContext(ctx, notificationSelect+` WHERE id = $1`, id))
}

// ListNotifications returns every notification, or only those still valid at
// activeAt when it is set. Newest first.
func (r *Repository) ListNotifications(activeAt *time.Time) ([]*domain.Notification, error) {
	query := notificationSelect + `
		WHERE $1::TIMESTAMPTZ IS NULL OR expires_at IS NULL OR expires_at >= $1
		ORDER BY created_at DESC, id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, activeAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *Repository) UpdateNotification(n *domain.Notification) error {
	query := `
		UPDATE notifications
		SET title = $1, message = $2, cast_type = $3, to_user_id = $4, notification_date = $5,
			shift_type = $6, exhibition_id = $7, expires_at = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, n.Title, n.Message, n.CastType, n.ToUserID, n.NotificationDate,
		n.ShiftType, n.ExhibitionID, n.ExpiresAt, n.ID).Scan(&n.UpdatedAt)
}

func (r *Repository) DeleteNotification(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return err
}

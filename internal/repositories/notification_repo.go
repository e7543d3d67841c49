package repositories

import (
	"context"
	"encoding/json"
	"time"

	"provdesk/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.AdminNotification) error
	List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error)
	// MarkAllRead flips read=true only for notifications that existed at the
	// caller-captured instant, so nothing created mid-operation is swallowed.
	MarkAllRead(ctx context.Context, before time.Time) (int, error)
}

type notificationRepo struct {
	db Database
}

func NewNotificationRepo(db Database) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *models.AdminNotification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO admin_notifications (id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, NOW())
	`
	_, err = r.db.Exec(ctx, query, n.ID, string(n.Type), n.Title, n.Message, data)
	return err
}

func (r *notificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	query := `
		SELECT id, type, title, message, data, read, created_at
		FROM admin_notifications
		ORDER BY created_at DESC
		LIMIT $1
	`
	if onlyUnread {
		query = `
		SELECT id, type, title, message, data, read, created_at
		FROM admin_notifications
		WHERE read = false
		ORDER BY created_at DESC
		LIMIT $1
	`
	}

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.AdminNotification
	for rows.Next() {
		n := &models.AdminNotification{}
		var raw []byte
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &raw, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &n.Data); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, before time.Time) (int, error) {
	query := `UPDATE admin_notifications SET read = true WHERE read = false AND created_at <= $1`
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

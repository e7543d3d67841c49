package repositories

import (
	"context"

	"provdesk/internal/models"
)

type ActivityRepository interface {
	Create(ctx context.Context, rec *models.ActivityRecord) error
	Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error)
	CountSince(ctx context.Context, since string) (int, error)
}

type activityRepo struct {
	db Database
}

func NewActivityRepo(db Database) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, rec *models.ActivityRecord) error {
	// created_at is server-assigned so retrieval order is the write order
	query := `
		INSERT INTO user_activities (id, user_id, action, ip, user_agent, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.UserID, rec.Action, rec.IP, rec.UserAgent, rec.Reason)
	return err
}

func (r *activityRepo) Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error) {
	query := `
		SELECT id, user_id, action, ip, user_agent, reason, created_at
		FROM user_activities
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::text IS NULL OR action = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	if filter == nil {
		filter = &models.ActivityFilter{}
	}
	rows, err := r.db.Query(ctx, query, filter.UserID, filter.Action, filter.Since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ActivityRecord
	for rows.Next() {
		rec := &models.ActivityRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Action, &rec.IP, &rec.UserAgent, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *activityRepo) CountSince(ctx context.Context, since string) (int, error) {
	query := `SELECT COUNT(*) FROM user_activities WHERE created_at >= $1::timestamptz`
	var count int
	err := r.db.QueryRow(ctx, query, since).Scan(&count)
	return count, err
}

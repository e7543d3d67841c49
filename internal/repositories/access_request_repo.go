package repositories

import (
	"context"
	"errors"

	"provdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AccessRequestRepository interface {
	Create(ctx context.Context, req *models.AccessRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error)
	List(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error)
	// MarkProcessed terminal-mutates the request exactly once: it only
	// touches rows still unprocessed and reports whether one was updated.
	MarkProcessed(ctx context.Context, id uuid.UUID, approved bool, notes, processedBy string) (bool, error)
}

type accessRequestRepo struct {
	db Database
}

func NewAccessRequestRepo(db Database) AccessRequestRepository {
	return &accessRequestRepo{db: db}
}

const requestColumns = `id, name, email, company, reason, ip, created_at,
		processed, approved, admin_notes, processed_at, processed_by`

func scanRequest(row pgx.Row) (*models.AccessRequest, error) {
	req := &models.AccessRequest{}
	err := row.Scan(&req.ID, &req.Name, &req.Email, &req.Company, &req.Reason, &req.IP,
		&req.CreatedAt, &req.Processed, &req.Approved, &req.AdminNotes, &req.ProcessedAt, &req.ProcessedBy)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *accessRequestRepo) Create(ctx context.Context, req *models.AccessRequest) error {
	query := `
		INSERT INTO access_requests (id, name, email, company, reason, ip, created_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), false)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.Name, req.Email, req.Company, req.Reason, req.IP)
	return err
}

func (r *accessRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests WHERE id = $1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *accessRequestRepo) List(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if onlyUnprocessed {
		query = `SELECT ` + requestColumns + ` FROM access_requests WHERE processed = false ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	}

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *accessRequestRepo) MarkProcessed(ctx context.Context, id uuid.UUID, approved bool, notes, processedBy string) (bool, error) {
	query := `
		UPDATE access_requests
		SET processed = true, approved = $1, admin_notes = $2, processed_at = NOW(), processed_by = $3
		WHERE id = $4 AND processed = false
	`
	tag, err := r.db.Exec(ctx, query, approved, notes, processedBy, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Zero rows means either an already-processed request or an unknown id;
	// callers treat those differently.
	var processed bool
	err = r.db.QueryRow(ctx, `SELECT processed FROM access_requests WHERE id = $1`, id).Scan(&processed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, models.ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"provdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the slice of pgxpool.Pool the repositories use. pgxmock
// implements it too, so repository tests run without a server.
type Database interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, status string, limit, offset int) ([]*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, name, photo_url, company, google_id, password_hash, status,
		created_at, last_login, approved_at, approved_by, rejected_at, rejection_reason,
		suspended_at, suspension_reason, reactivated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PhotoURL, &user.Company,
		&user.GoogleID, &user.PasswordHash, &user.Status, &user.CreatedAt, &user.LastLogin,
		&user.ApprovedAt, &user.ApprovedBy, &user.RejectedAt, &user.RejectionReason,
		&user.SuspendedAt, &user.SuspensionReason, &user.ReactivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	var count int
	emailCheckQuery := `SELECT COUNT(*) FROM users WHERE email = $1`
	err := r.db.QueryRow(ctx, emailCheckQuery, user.Email).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user with email '%s' already exists", user.Email)
	}

	query := `
		INSERT INTO users (id, email, name, photo_url, company, google_id, password_hash,
			status, created_at, approved_at, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), $9, $10)
	`
	_, err = r.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.PhotoURL,
		user.Company, user.GoogleID, user.PasswordHash, user.Status, user.ApprovedAt, user.ApprovedBy)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// Update persists the full mutable field set. CreatedAt is immutable and
// never written back.
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, photo_url = $2, company = $3, status = $4,
			approved_at = $5, approved_by = $6, rejected_at = $7, rejection_reason = $8,
			suspended_at = $9, suspension_reason = $10, reactivated_at = $11
		WHERE id = $12
	`
	_, err := r.db.Exec(ctx, query, user.Name, user.PhotoURL, user.Company, user.Status,
		user.ApprovedAt, user.ApprovedBy, user.RejectedAt, user.RejectionReason,
		user.SuspendedAt, user.SuspensionReason, user.ReactivatedAt, user.ID)
	return err
}

func (r *userRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, userColumns)
	args := []interface{}{limit, offset}
	if status != "" && status != "all" {
		query = fmt.Sprintf(`SELECT %s FROM users WHERE status = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, userColumns)
		args = append(args, status)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login = NOW() WHERE id = $1 AND status = $2`
	_, err := r.db.Exec(ctx, query, id, models.StatusApproved)
	return err
}

func (r *userRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM users GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

package repositories

import (
	"context"
	"testing"
	"time"

	"provdesk/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type UserRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    UserRepository
	userID  uuid.UUID
	context context.Context
}

func (suite *UserRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewUserRepo(mock)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *UserRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestUserRepoTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepoTestSuite))
}

func userRows(user *models.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "name", "photo_url", "company", "google_id", "password_hash", "status",
		"created_at", "last_login", "approved_at", "approved_by", "rejected_at", "rejection_reason",
		"suspended_at", "suspension_reason", "reactivated_at",
	}).AddRow(user.ID, user.Email, user.Name, user.PhotoURL, user.Company, user.GoogleID,
		user.PasswordHash, user.Status, user.CreatedAt, user.LastLogin, user.ApprovedAt,
		user.ApprovedBy, user.RejectedAt, user.RejectionReason, user.SuspendedAt,
		user.SuspensionReason, user.ReactivatedAt)
}

func (suite *UserRepoTestSuite) TestCreate_Success() {
	user := &models.User{
		ID:           suite.userID,
		Email:        "maria@isp.example",
		Name:         "Maria Silva",
		PasswordHash: "$2a$10$hash",
		Status:       models.StatusPending,
	}

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = \$1`).
		WithArgs(user.Email).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.Email, user.Name, user.PhotoURL, user.Company,
			user.GoogleID, user.PasswordHash, user.Status, user.ApprovedAt, user.ApprovedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, user)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestCreate_DuplicateEmail() {
	user := &models.User{ID: suite.userID, Email: "maria@isp.example", Status: models.StatusPending}

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE email = \$1`).
		WithArgs(user.Email).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	err := suite.repo.Create(suite.context, user)
	assert.ErrorContains(suite.T(), err, "already exists")
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestGetByID_Success() {
	now := time.Now()
	user := &models.User{
		ID:        suite.userID,
		Email:     "maria@isp.example",
		Name:      "Maria Silva",
		Status:    models.StatusApproved,
		CreatedAt: now,
	}

	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(suite.userID).
		WillReturnRows(userRows(user))

	got, err := suite.repo.GetByID(suite.context, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.Email, got.Email)
	assert.Equal(suite.T(), models.StatusApproved, got.Status)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestGetByEmail_NotFound() {
	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("nobody@isp.example").
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.repo.GetByEmail(suite.context, "nobody@isp.example")
	assert.ErrorIs(suite.T(), err, models.ErrUserNotFound)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestUpdate_WritesLifecycleFields() {
	now := time.Now()
	reason := "abuse"
	admin := "admin1"
	user := &models.User{
		ID:               suite.userID,
		Name:             "Maria Silva",
		Status:           models.StatusSuspended,
		ApprovedAt:       &now,
		ApprovedBy:       &admin,
		SuspendedAt:      &now,
		SuspensionReason: &reason,
	}

	suite.mock.ExpectExec(`UPDATE users`).
		WithArgs(user.Name, user.PhotoURL, user.Company, user.Status,
			user.ApprovedAt, user.ApprovedBy, user.RejectedAt, user.RejectionReason,
			user.SuspendedAt, user.SuspensionReason, user.ReactivatedAt, user.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Update(suite.context, user)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestTouchLastLogin_OnlyApproved() {
	suite.mock.ExpectExec(`UPDATE users SET last_login = NOW\(\) WHERE id = \$1 AND status = \$2`).
		WithArgs(suite.userID, models.StatusApproved).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.TouchLastLogin(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *UserRepoTestSuite) TestCountByStatus() {
	suite.mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM users GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(models.StatusPending, 3).
			AddRow(models.StatusApproved, 5))

	counts, err := suite.repo.CountByStatus(suite.context)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, counts[models.StatusPending])
	assert.Equal(suite.T(), 5, counts[models.StatusApproved])
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

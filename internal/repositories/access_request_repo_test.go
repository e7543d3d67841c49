package repositories

import (
	"context"
	"testing"

	"provdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRequestRepo_MarkProcessedGuard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccessRequestRepo(mock)
	id := uuid.New()

	// first call updates the unprocessed row
	mock.ExpectExec(`UPDATE access_requests`).
		WithArgs(true, "looks good", "admin1", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := repo.MarkProcessed(context.Background(), id, true, "looks good", "admin1")
	require.NoError(t, err)
	assert.True(t, updated)

	// second call matches zero rows: the processed=false guard holds, and
	// the follow-up existence check confirms the row was already processed
	mock.ExpectExec(`UPDATE access_requests`).
		WithArgs(false, "changed my mind", "admin2", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT processed FROM access_requests`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"processed"}).AddRow(true))

	updated, err = repo.MarkProcessed(context.Background(), id, false, "changed my mind", "admin2")
	require.NoError(t, err)
	assert.False(t, updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessRequestRepo_MarkProcessedUnknownID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccessRequestRepo(mock)
	id := uuid.New()

	mock.ExpectExec(`UPDATE access_requests`).
		WithArgs(true, "", "admin1", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT processed FROM access_requests`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.MarkProcessed(context.Background(), id, true, "", "admin1")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

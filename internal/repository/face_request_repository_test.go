package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

func TestReviewApprovesAndGrants(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFaceRequestRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "reason", "status", "reviewed_by", "reviewed_at", "created_at"}).
		AddRow("r1", "u1", "camera damaged my photo", string(models.FaceRequestApproved), "admin1", now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE face_update_requests").
		WithArgs("r1", models.FaceRequestApproved, "admin1", now).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE users SET face_update_allowed = TRUE").
		WithArgs("u1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.Review(context.Background(), "r1", "admin1", models.FaceRequestApproved, now)
	require.NoError(t, err)
	assert.Equal(t, models.FaceRequestApproved, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewDenyDoesNotGrant(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFaceRequestRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "reason", "status", "reviewed_by", "reviewed_at", "created_at"}).
		AddRow("r1", "u1", "new glasses changed my look", string(models.FaceRequestDenied), "admin1", now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE face_update_requests").
		WithArgs("r1", models.FaceRequestDenied, "admin1", now).
		WillReturnRows(rows)
	mock.ExpectCommit()

	req, err := repo.Review(context.Background(), "r1", "admin1", models.FaceRequestDenied, now)
	require.NoError(t, err)
	assert.Equal(t, models.FaceRequestDenied, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFaceRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE face_update_requests").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), "r1", "admin1", models.FaceRequestApproved, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFaceRequestRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := repo.HasPending(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, pending)
}

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

func TestInsertAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))

	confidence := 0.93
	inserted, err := repo.Insert(context.Background(), &models.Attendance{
		SessionID:       "s1",
		StudentID:       "u1",
		Status:          models.AttendanceStatusPresent,
		ConfidenceScore: &confidence,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAttendanceConflictIsNotAnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// ON CONFLICT DO NOTHING yields zero rows from RETURNING.
	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnError(sql.ErrNoRows)

	inserted, err := repo.Insert(context.Background(), &models.Attendance{
		SessionID: "s1",
		StudentID: "u1",
		Status:    models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAttendanceNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM attendance WHERE session_id = \\$1 AND student_id = \\$2").
		WithArgs("s1", "u1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "s1", "u1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionReport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	confidence := 0.88
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "timestamp", "status", "confidence_score"}).
		AddRow("u1", "Alice", now, string(models.AttendanceStatusPresent), confidence)
	mock.ExpectQuery("SELECT a.student_id, u.full_name AS student_name").
		WithArgs("s1").
		WillReturnRows(rows)

	report, err := repo.SessionReport(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "Alice", report[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

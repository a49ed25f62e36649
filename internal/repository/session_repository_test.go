package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSessionDeactivatesPrevious(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_sessions SET is_active = FALSE").
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WithArgs(sqlmock.AnyArg(), "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session, err := repo.Open(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", session.ClassID)
	assert.True(t, session.IsActive)
	assert.Nil(t, session.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSessionRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_sessions SET is_active = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attendance_sessions").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Open(context.Background(), "c1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "class_id", "start_time", "end_time", "is_active"}).
		AddRow("s1", "c1", now, nil, true)
	mock.ExpectQuery("SELECT (.+) FROM attendance_sessions WHERE class_id = \\$1 AND is_active").
		WithArgs("c1").
		WillReturnRows(rows)

	session, err := repo.Active(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSessionNone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM attendance_sessions WHERE class_id = \\$1 AND is_active").
		WithArgs("c1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Active(context.Background(), "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

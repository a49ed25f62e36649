package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// SessionRepository owns the attendance session lifecycle.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Open deactivates every active session for the class and creates the new
// active one in a single transaction, so no observer can ever see two active
// sessions for the same class.
func (r *SessionRepository) Open(ctx context.Context, classID string) (*models.AttendanceSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin open session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const deactivate = `UPDATE attendance_sessions SET is_active = FALSE, end_time = $2 WHERE class_id = $1 AND is_active`
	if _, err := tx.ExecContext(ctx, deactivate, classID, now); err != nil {
		return nil, fmt.Errorf("deactivate sessions: %w", err)
	}

	session := &models.AttendanceSession{
		ID:        uuid.NewString(),
		ClassID:   classID,
		StartTime: now,
		IsActive:  true,
	}
	const insert = `INSERT INTO attendance_sessions (id, class_id, start_time, is_active) VALUES ($1, $2, $3, TRUE)`
	if _, err := tx.ExecContext(ctx, insert, session.ID, session.ClassID, session.StartTime); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open session: %w", err)
	}
	return session, nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, start_time, end_time, is_active FROM attendance_sessions WHERE id = $1 LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Active returns the single active session for a class, or sql.ErrNoRows.
func (r *SessionRepository) Active(ctx context.Context, classID string) (*models.AttendanceSession, error) {
	const query = `SELECT id, class_id, start_time, end_time, is_active FROM attendance_sessions WHERE class_id = $1 AND is_active LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return &session, nil
}

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

// AttendanceRepository persists immutable attendance records. Records are
// append-only; the unique (session_id, student_id) constraint is the final
// arbiter against concurrent duplicate marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Find returns the record for a (session, student) pair, or sql.ErrNoRows.
func (r *AttendanceRepository) Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error) {
	const query = `SELECT id, session_id, student_id, timestamp, status, confidence_score
FROM attendance WHERE session_id = $1 AND student_id = $2 LIMIT 1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, sessionID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// Insert writes a new attendance record. It reports inserted=false when the
// unique constraint swallowed the write because a concurrent mark for the
// same pair won the race.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.Attendance) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, session_id, student_id, timestamp, status, confidence_score)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, student_id) DO NOTHING
RETURNING id`
	var id string
	err := r.db.GetContext(ctx, &id, query,
		record.ID, record.SessionID, record.StudentID, record.Timestamp, record.Status, record.ConfidenceScore)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// HistoryByStudent returns the student's attendance records, newest first.
func (r *AttendanceRepository) HistoryByStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error) {
	const query = `SELECT a.id, a.session_id, a.student_id, a.timestamp, a.status, a.confidence_score,
	c.name AS class_name, c.code AS class_code
FROM attendance a
JOIN attendance_sessions s ON s.id = a.session_id
JOIN classes c ON c.id = s.class_id
WHERE a.student_id = $1
ORDER BY a.timestamp DESC`
	var rows []models.AttendanceHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}

// CountPresentByStudent counts the student's present records.
func (r *AttendanceRepository) CountPresentByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance WHERE student_id = $1 AND status = 'present'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count present: %w", err)
	}
	return count, nil
}

// CountSessionsForStudent counts sessions that have started for classes the
// student is enrolled in.
func (r *AttendanceRepository) CountSessionsForStudent(ctx context.Context, studentID string, until time.Time) (int, error) {
	const query = `SELECT COUNT(*)
FROM attendance_sessions s
JOIN class_students cs ON cs.class_id = s.class_id
WHERE cs.student_id = $1 AND s.start_time <= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, until); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// SessionReport lists every record of a session with student metadata.
func (r *AttendanceRepository) SessionReport(ctx context.Context, sessionID string) ([]models.AttendanceReportRow, error) {
	const query = `SELECT a.student_id, u.full_name AS student_name, a.timestamp, a.status, a.confidence_score
FROM attendance a
JOIN users u ON u.id = a.student_id
WHERE a.session_id = $1
ORDER BY a.timestamp`
	var rows []models.AttendanceReportRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("session report: %w", err)
	}
	return rows, nil
}

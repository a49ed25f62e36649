package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Attendance is a single immutable attendance record. The pair
// (session_id, student_id) is unique at the database level.
type Attendance struct {
	ID              string           `db:"id" json:"id"`
	SessionID       string           `db:"session_id" json:"session_id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	Timestamp       time.Time        `db:"timestamp" json:"timestamp"`
	Status          AttendanceStatus `db:"status" json:"status"`
	ConfidenceScore *float64         `db:"confidence_score" json:"confidence_score,omitempty"`
}

// AttendanceHistoryRow extends an attendance record with class metadata for
// the student history listing.
type AttendanceHistoryRow struct {
	Attendance
	ClassName string `db:"class_name" json:"class_name"`
	ClassCode string `db:"class_code" json:"class_code"`
}

// AttendanceReportRow captures one line of a session report export.
type AttendanceReportRow struct {
	StudentID       string           `db:"student_id" json:"student_id"`
	StudentName     string           `db:"student_name" json:"student_name"`
	Timestamp       time.Time        `db:"timestamp" json:"timestamp"`
	Status          AttendanceStatus `db:"status" json:"status"`
	ConfidenceScore *float64         `db:"confidence_score" json:"confidence_score,omitempty"`
}

// AttendanceStats summarises a student's attendance across enrolled classes.
type AttendanceStats struct {
	TotalSessions int     `json:"total_classes"`
	Attended      int     `json:"attended"`
	Percentage    float64 `json:"percentage"`
	Standing      string  `json:"status"`
}

// MarkStatus distinguishes a fresh mark from the idempotent replay of an
// earlier one. Both map to a successful HTTP response.
type MarkStatus string

const (
	MarkStatusMarked        MarkStatus = "marked"
	MarkStatusAlreadyMarked MarkStatus = "already_marked"
)

// MarkResult is the outcome of a successful attendance marking call.
type MarkResult struct {
	Status     MarkStatus `json:"status"`
	Record     Attendance `json:"record"`
	Confidence *float64   `json:"confidence,omitempty"`
}

package models

import "time"

// AttendanceSession is a class attendance window. At most one session per
// class is active at any time; opening a new session closes the previous one.
// A session never expires on its own, it stays active until superseded.
type AttendanceSession struct {
	ID        string     `db:"id" json:"id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
}

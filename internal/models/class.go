package models

import "time"

// Class represents a course that students can join with a class code.
type Class struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Code        string    `db:"code" json:"code"`
	Description *string   `db:"description" json:"description,omitempty"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClassDetail extends a class with its enrolled student count.
type ClassDetail struct {
	Class
	StudentCount int `db:"student_count" json:"student_count"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Valid reports whether the role is one of the supported values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table. A user holds
// at most one face embedding at a time; FaceUpdateAllowed is a single-use
// grant consumed by the next successful re-enrollment.
type User struct {
	ID                string          `db:"id" json:"id"`
	Username          string          `db:"username" json:"username"`
	Email             string          `db:"email" json:"email"`
	PasswordHash      string          `db:"password_hash" json:"-"`
	FullName          string          `db:"full_name" json:"full_name"`
	Role              UserRole        `db:"role" json:"role"`
	FaceEmbedding     pq.Float64Array `db:"face_embedding" json:"-"`
	FaceUpdateAllowed bool            `db:"face_update_allowed" json:"face_update_allowed"`
	Active            bool            `db:"active" json:"active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// HasFaceEmbedding reports whether the user completed face enrollment.
func (u *User) HasFaceEmbedding() bool {
	return len(u.FaceEmbedding) > 0
}

// UserInfo is the public projection of a user returned by the API.
type UserInfo struct {
	ID                string   `json:"id"`
	Username          string   `json:"username"`
	Email             string   `json:"email"`
	FullName          string   `json:"full_name"`
	Role              UserRole `json:"role"`
	HasFaceEmbedding  bool     `json:"has_face_embedding"`
	FaceUpdateAllowed bool     `json:"face_update_allowed"`
	Active            bool     `json:"active"`
}

// Info converts the stored user into its public projection.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		FullName:          u.FullName,
		Role:              u.Role,
		HasFaceEmbedding:  u.HasFaceEmbedding(),
		FaceUpdateAllowed: u.FaceUpdateAllowed,
		Active:            u.Active,
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

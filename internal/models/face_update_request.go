package models

import "time"

// FaceRequestStatus is the review state of a face update request.
// Approved and denied are terminal.
type FaceRequestStatus string

const (
	FaceRequestPending  FaceRequestStatus = "pending"
	FaceRequestApproved FaceRequestStatus = "approved"
	FaceRequestDenied   FaceRequestStatus = "denied"
)

// FaceUpdateRequest asks an admin for permission to replace a stored face
// embedding. A requester can have at most one pending request at a time.
type FaceUpdateRequest struct {
	ID         string            `db:"id" json:"id"`
	UserID     string            `db:"user_id" json:"user_id"`
	Reason     string            `db:"reason" json:"reason"`
	Status     FaceRequestStatus `db:"status" json:"status"`
	ReviewedBy *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// FaceUpdateRequestDetail joins requester and reviewer names for admin views.
type FaceUpdateRequestDetail struct {
	FaceUpdateRequest
	UserName     string  `db:"user_name" json:"user_name"`
	UserEmail    string  `db:"user_email" json:"user_email"`
	ReviewerName *string `db:"reviewer_name" json:"reviewer_name,omitempty"`
}

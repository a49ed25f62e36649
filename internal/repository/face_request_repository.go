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

// FaceRequestRepository persists face update requests and their review
// transitions.
type FaceRequestRepository struct {
	db *sqlx.DB
}

// NewFaceRequestRepository constructs the repository.
func NewFaceRequestRepository(db *sqlx.DB) *FaceRequestRepository {
	return &FaceRequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *FaceRequestRepository) Create(ctx context.Context, req *models.FaceUpdateRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = models.FaceRequestPending
	req.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO face_update_requests (id, user_id, reason, status, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.UserID, req.Reason, req.Status, req.CreatedAt); err != nil {
		return fmt.Errorf("create face update request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *FaceRequestRepository) FindByID(ctx context.Context, id string) (*models.FaceUpdateRequest, error) {
	const query = `SELECT id, user_id, reason, status, reviewed_by, reviewed_at, created_at
FROM face_update_requests WHERE id = $1 LIMIT 1`
	var req models.FaceUpdateRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find face update request: %w", err)
	}
	return &req, nil
}

// HasPending reports whether the user already has a pending request.
func (r *FaceRequestRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM face_update_requests WHERE user_id = $1 AND status = 'pending')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		return false, fmt.Errorf("check pending face update request: %w", err)
	}
	return exists, nil
}

// LatestByUser returns the user's most recent request, if any.
func (r *FaceRequestRepository) LatestByUser(ctx context.Context, userID string) (*models.FaceUpdateRequest, error) {
	const query = `SELECT id, user_id, reason, status, reviewed_by, reviewed_at, created_at
FROM face_update_requests WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	var req models.FaceUpdateRequest
	if err := r.db.GetContext(ctx, &req, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest face update request: %w", err)
	}
	return &req, nil
}

// List returns requests with requester/reviewer metadata, optionally
// filtered by status.
func (r *FaceRequestRepository) List(ctx context.Context, status *models.FaceRequestStatus) ([]models.FaceUpdateRequestDetail, error) {
	query := `SELECT fr.id, fr.user_id, fr.reason, fr.status, fr.reviewed_by, fr.reviewed_at, fr.created_at,
	u.full_name AS user_name, u.email AS user_email, rv.full_name AS reviewer_name
FROM face_update_requests fr
JOIN users u ON u.id = fr.user_id
LEFT JOIN users rv ON rv.id = fr.reviewed_by`
	var args []interface{}
	if status != nil {
		query += ` WHERE fr.status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY fr.created_at DESC`

	var rows []models.FaceUpdateRequestDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list face update requests: %w", err)
	}
	return rows, nil
}

// Review transitions a pending request to its terminal status. Approval also
// grants the requester a single-use re-enrollment permission; both writes
// happen in one transaction so a request can never be approved without the
// grant taking effect. The pending guard is part of the UPDATE predicate, so
// concurrent reviews resolve to exactly one winner; the loser observes
// sql.ErrNoRows.
func (r *FaceRequestRepository) Review(ctx context.Context, id, reviewerID string, status models.FaceRequestStatus, reviewedAt time.Time) (*models.FaceUpdateRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE face_update_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4
WHERE id = $1 AND status = 'pending'
RETURNING id, user_id, reason, status, reviewed_by, reviewed_at, created_at`
	var req models.FaceUpdateRequest
	if err := tx.GetContext(ctx, &req, update, id, status, reviewerID, reviewedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("review face update request: %w", err)
	}

	if status == models.FaceRequestApproved {
		const grant = `UPDATE users SET face_update_allowed = TRUE, updated_at = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, grant, req.UserID, reviewedAt); err != nil {
			return nil, fmt.Errorf("grant face update permission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}
	return &req, nil
}

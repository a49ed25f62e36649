package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type faceRequestRepository interface {
	Create(ctx context.Context, req *models.FaceUpdateRequest) error
	FindByID(ctx context.Context, id string) (*models.FaceUpdateRequest, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	LatestByUser(ctx context.Context, userID string) (*models.FaceUpdateRequest, error)
	List(ctx context.Context, status *models.FaceRequestStatus) ([]models.FaceUpdateRequestDetail, error)
	Review(ctx context.Context, id, reviewerID string, status models.FaceRequestStatus, reviewedAt time.Time) (*models.FaceUpdateRequest, error)
}

type requestUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type reviewNotifier interface {
	ReviewDecided(req *models.FaceUpdateRequest)
}

// CreateFaceRequestRequest is the payload for requesting a face update.
type CreateFaceRequestRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// FaceRequestService drives the face update approval workflow: a pending
// request either gets approved or denied exactly once, by an admin. Caller
// authorization (admin role on Approve/Deny) is enforced by the RBAC
// middleware, not here.
type FaceRequestService struct {
	requests  faceRequestRepository
	users     requestUserReader
	notifier  reviewNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFaceRequestService constructs the workflow service.
func NewFaceRequestService(requests faceRequestRepository, users requestUserReader, notifier reviewNotifier, validate *validator.Validate, logger *zap.Logger) *FaceRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaceRequestService{
		requests:  requests,
		users:     users,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create files a new pending request for the user. The user must already
// have a stored embedding and no pending request.
func (s *FaceRequestService) Create(ctx context.Context, userID string, req CreateFaceRequestRequest) (*models.FaceUpdateRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	reason := strings.TrimSpace(req.Reason)
	if len(reason) < 10 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please provide a reason of at least 10 characters")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if !user.HasFaceEmbedding() {
		return nil, appErrors.Clone(appErrors.ErrFaceNotRegistered, "no face registered yet, please register first")
	}

	pending, err := s.requests.HasPending(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.ErrDuplicateRequest
	}

	request := &models.FaceUpdateRequest{UserID: userID, Reason: reason}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logger.Info("face update requested", zap.String("user_id", userID), zap.String("request_id", request.ID))
	return request, nil
}

// Approve transitions a pending request to approved and grants the requester
// a single-use re-enrollment permission.
func (s *FaceRequestService) Approve(ctx context.Context, requestID, reviewerID string) (*models.FaceUpdateRequest, error) {
	return s.review(ctx, requestID, reviewerID, models.FaceRequestApproved)
}

// Deny transitions a pending request to denied. The permission flag is left
// untouched.
func (s *FaceRequestService) Deny(ctx context.Context, requestID, reviewerID string) (*models.FaceUpdateRequest, error) {
	return s.review(ctx, requestID, reviewerID, models.FaceRequestDenied)
}

func (s *FaceRequestService) review(ctx context.Context, requestID, reviewerID string, status models.FaceRequestStatus) (*models.FaceUpdateRequest, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "face update request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch request")
	}

	reviewed, err := s.requests.Review(ctx, requestID, reviewerID, status, time.Now().UTC())
	if err != nil {
		// The pending guard lives in the UPDATE predicate: zero rows means
		// another reviewer got there first.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyProcessed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review request")
	}

	s.logger.Info("face update request reviewed",
		zap.String("request_id", reviewed.ID),
		zap.String("reviewer_id", reviewerID),
		zap.String("status", string(reviewed.Status)),
	)
	if s.notifier != nil {
		s.notifier.ReviewDecided(reviewed)
	}
	return reviewed, nil
}

// List returns requests for the admin review queue, optionally filtered by
// status.
func (s *FaceRequestService) List(ctx context.Context, status string) ([]models.FaceUpdateRequestDetail, error) {
	var filter *models.FaceRequestStatus
	if status != "" {
		st := models.FaceRequestStatus(strings.ToLower(status))
		switch st {
		case models.FaceRequestPending, models.FaceRequestApproved, models.FaceRequestDenied:
			filter = &st
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
		}
	}
	rows, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return rows, nil
}

// Status returns the user's latest request, if any.
func (s *FaceRequestService) Status(ctx context.Context, userID string) (*models.FaceUpdateRequest, error) {
	latest, err := s.requests.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch request status")
	}
	return latest, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/pkg/jobs"
)

const jobTypeReviewDecision = "face_request.review_decision"

type reviewDecisionPayload struct {
	RequestID string
	UserID    string
	Status    models.FaceRequestStatus
}

// NotificationService delivers review outcomes to requesters off the request
// path. Delivery is log-backed; the queue gives retries and decouples the
// review transaction from whatever channel eventually carries the message.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its backing queue.
func NewNotificationService(cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// ReviewDecided enqueues a notification for a decided face update request.
// Failures are logged and dropped; a review never fails on notification.
func (s *NotificationService) ReviewDecided(req *models.FaceUpdateRequest) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeReviewDecision,
		Payload: reviewDecisionPayload{
			RequestID: req.ID,
			UserID:    req.UserID,
			Status:    req.Status,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue review notification",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reviewDecisionPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}

	message := "your face update request was denied"
	if payload.Status == models.FaceRequestApproved {
		message = "your face update request was approved, you may re-register your face"
	}

	s.logger.Info("notification delivered",
		zap.String("job_id", job.ID),
		zap.String("user_id", payload.UserID),
		zap.String("request_id", payload.RequestID),
		zap.String("message", message),
	)
	return nil
}

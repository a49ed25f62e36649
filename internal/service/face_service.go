package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/faceclient"
	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type faceUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetFaceEmbedding(ctx context.Context, id string, embedding pq.Float64Array) error
}

type embeddingExtractor interface {
	Extract(ctx context.Context, imagePath string) ([]float64, error)
}

type probeStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
	Path(filename string) string
}

// FaceService owns face enrollment. A user keeps at most one embedding; once
// enrolled, replacing it requires an admin-approved update request, and every
// successful re-enrollment consumes that grant.
type FaceService struct {
	users          faceUserRepository
	extractor      embeddingExtractor
	storage        probeStorage
	extractTimeout time.Duration
	logger         *zap.Logger
}

// NewFaceService constructs the face enrollment service.
func NewFaceService(users faceUserRepository, extractor embeddingExtractor, storage probeStorage, extractTimeout time.Duration, logger *zap.Logger) *FaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractTimeout <= 0 {
		extractTimeout = 30 * time.Second
	}
	return &FaceService{
		users:          users,
		extractor:      extractor,
		storage:        storage,
		extractTimeout: extractTimeout,
		logger:         logger,
	}
}

// Enroll extracts an embedding from the submitted image and stores it for
// the user. First-time enrollment always succeeds; re-enrollment is rejected
// unless an approved face update request granted permission.
func (s *FaceService) Enroll(ctx context.Context, userID string, image io.Reader) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if user.HasFaceEmbedding() && !user.FaceUpdateAllowed {
		return appErrors.ErrReEnrollmentLocked
	}

	embedding, err := s.extractFromImage(ctx, image)
	if err != nil {
		return err
	}

	if err := s.users.SetFaceEmbedding(ctx, userID, embedding); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store face embedding")
	}

	s.logger.Info("face enrolled",
		zap.String("user_id", userID),
		zap.Int("embedding_dim", len(embedding)),
		zap.Bool("re_enrollment", user.HasFaceEmbedding()),
	)
	return nil
}

// extractFromImage stages the image in the uploads dir, runs extraction and
// removes the file on every path out.
func (s *FaceService) extractFromImage(ctx context.Context, image io.Reader) (pq.Float64Array, error) {
	filename := uuid.NewString() + ".jpg"
	if _, err := s.storage.SaveStream(filename, image); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage image")
	}
	defer func() {
		if err := s.storage.Delete(filename); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove probe image", zap.String("file", filename), zap.Error(err))
		}
	}()

	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	embedding, err := s.extractor.Extract(extractCtx, s.storage.Path(filename))
	if err != nil {
		return nil, mapExtractionError(err)
	}
	return pq.Float64Array(embedding), nil
}

func mapExtractionError(err error) error {
	switch {
	case errors.Is(err, faceclient.ErrNoFaceDetected):
		return appErrors.ErrNoFaceDetected
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrExtractionTimeout.Code, appErrors.ErrExtractionTimeout.Status, appErrors.ErrExtractionTimeout.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrExtraction.Code, appErrors.ErrExtraction.Status, fmt.Sprintf("face extraction failed: %v", err))
	}
}

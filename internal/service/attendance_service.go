package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/facematch"
	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	Find(ctx context.Context, sessionID, studentID string) (*models.Attendance, error)
	Insert(ctx context.Context, record *models.Attendance) (bool, error)
	HistoryByStudent(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error)
	CountPresentByStudent(ctx context.Context, studentID string) (int, error)
	CountSessionsForStudent(ctx context.Context, studentID string, until time.Time) (int, error)
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
}

type markMetrics interface {
	ObserveMark(outcome string, distance float64)
}

// AttendanceService coordinates a face-verified attendance mark. Exactly one
// record is ever committed per (session, student) pair; replays and races
// both resolve to the idempotent already-marked outcome.
type AttendanceService struct {
	records        attendanceRepository
	sessions       attendanceSessionReader
	users          faceUserRepository
	extractor      embeddingExtractor
	storage        probeStorage
	metrics        markMetrics
	extractTimeout time.Duration
	logger         *zap.Logger
}

// NewAttendanceService constructs the marking coordinator.
func NewAttendanceService(
	records attendanceRepository,
	sessions attendanceSessionReader,
	users faceUserRepository,
	extractor embeddingExtractor,
	storage probeStorage,
	metrics markMetrics,
	extractTimeout time.Duration,
	logger *zap.Logger,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractTimeout <= 0 {
		extractTimeout = 30 * time.Second
	}
	return &AttendanceService{
		records:        records,
		sessions:       sessions,
		users:          users,
		extractor:      extractor,
		storage:        storage,
		metrics:        metrics,
		extractTimeout: extractTimeout,
		logger:         logger,
	}
}

// Mark verifies the probe image against the student's stored embedding and
// commits a present record. Checks run cheapest first; the probe file is
// removed on every path out.
func (s *AttendanceService) Mark(ctx context.Context, studentID, sessionID string, probe io.Reader) (*models.MarkResult, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	if !student.HasFaceEmbedding() {
		s.observe("face_not_registered", 0)
		return nil, appErrors.ErrFaceNotRegistered
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	if !session.IsActive {
		s.observe("session_inactive", 0)
		return nil, appErrors.ErrSessionInactive
	}

	if existing, err := s.records.Find(ctx, sessionID, studentID); err == nil {
		s.observe("already_marked", 0)
		return alreadyMarked(existing), nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}

	probeEmbedding, err := s.extractProbe(ctx, probe)
	if err != nil {
		s.observe("extraction_failed", 0)
		return nil, err
	}

	match, distance, err := facematch.Compare(student.FaceEmbedding, probeEmbedding)
	if err != nil {
		// A corrupt stored embedding is a system fault, never a mismatch.
		s.observe("verification_error", 0)
		return nil, appErrors.Wrap(err, appErrors.ErrVerification.Code, appErrors.ErrVerification.Status, appErrors.ErrVerification.Message)
	}

	if !match {
		s.observe("mismatch", distance)
		s.logger.Info("face mismatch",
			zap.String("student_id", studentID),
			zap.String("session_id", sessionID),
			zap.Float64("distance", facematch.RoundScore(distance)),
		)
		return nil, appErrors.Clone(appErrors.ErrFaceMismatch,
			fmt.Sprintf("face does not match the registered profile (distance=%.4f)", distance))
	}

	confidence := facematch.RoundScore(facematch.Confidence(distance))
	record := &models.Attendance{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		StudentID:       studentID,
		Timestamp:       time.Now().UTC(),
		Status:          models.AttendanceStatusPresent,
		ConfidenceScore: &confidence,
	}

	inserted, err := s.records.Insert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}
	if !inserted {
		// A concurrent mark won the unique-constraint race; surface the same
		// idempotent outcome the existence check would have produced.
		existing, err := s.records.Find(ctx, sessionID, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
		}
		s.observe("already_marked", distance)
		return alreadyMarked(existing), nil
	}

	s.observe("marked", distance)
	s.logger.Info("attendance marked",
		zap.String("student_id", studentID),
		zap.String("session_id", sessionID),
		zap.Float64("confidence", confidence),
	)
	return &models.MarkResult{
		Status:     models.MarkStatusMarked,
		Record:     *record,
		Confidence: &confidence,
	}, nil
}

func alreadyMarked(record *models.Attendance) *models.MarkResult {
	return &models.MarkResult{
		Status:     models.MarkStatusAlreadyMarked,
		Record:     *record,
		Confidence: record.ConfidenceScore,
	}
}

func (s *AttendanceService) extractProbe(ctx context.Context, probe io.Reader) ([]float64, error) {
	filename := uuid.NewString() + ".jpg"
	if _, err := s.storage.SaveStream(filename, probe); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage probe image")
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
	return embedding, nil
}

func (s *AttendanceService) observe(outcome string, distance float64) {
	if s.metrics != nil {
		s.metrics.ObserveMark(outcome, distance)
	}
}

// History lists the student's attendance records, newest first.
func (s *AttendanceService) History(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error) {
	rows, err := s.records.HistoryByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch history")
	}
	return rows, nil
}

// Stats summarises the student's attendance across enrolled classes.
func (s *AttendanceService) Stats(ctx context.Context, studentID string) (*models.AttendanceStats, error) {
	total, err := s.records.CountSessionsForStudent(ctx, studentID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	if total == 0 {
		return &models.AttendanceStats{Standing: "No classes yet"}, nil
	}

	attended, err := s.records.CountPresentByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}

	percentage := math.Round(float64(attended)/float64(total)*10000) / 100
	stats := &models.AttendanceStats{
		TotalSessions: total,
		Attended:      attended,
		Percentage:    percentage,
	}
	switch {
	case percentage >= 85:
		stats.Standing = "excellent"
	case percentage >= 75:
		stats.Standing = "good"
	case percentage >= 60:
		stats.Standing = "average"
	default:
		stats.Standing = "poor"
	}
	return stats, nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type sessionRepository interface {
	Open(ctx context.Context, classID string) (*models.AttendanceSession, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	Active(ctx context.Context, classID string) (*models.AttendanceSession, error)
}

type sessionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// SessionService owns the attendance window lifecycle. Opening a session
// supersedes any active one for the same class; sessions never expire on
// their own.
type SessionService struct {
	sessions sessionRepository
	classes  sessionClassReader
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  cacheMetrics
	logger   *zap.Logger
}

// NewSessionService constructs the session registrar. The cache client and
// metrics recorder are optional; without a cache every lookup hits the
// database.
func NewSessionService(sessions sessionRepository, classes sessionClassReader, cache *redis.Client, cacheTTL time.Duration, metrics cacheMetrics, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SessionService{
		sessions: sessions,
		classes:  classes,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

func activeSessionKey(classID string) string {
	return fmt.Sprintf("active_session:%s", classID)
}

// Open starts a new attendance session for the class. Only the owning
// teacher or an admin may open one; any previously active session is closed
// in the same transaction.
func (s *SessionService) Open(ctx context.Context, classID string, actor *models.JWTClaims) (*models.AttendanceSession, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	if actor.Role != models.RoleAdmin && class.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class teacher can open a session")
	}

	session, err := s.sessions.Open(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	s.cacheSet(ctx, session)
	s.logger.Info("attendance session opened",
		zap.String("session_id", session.ID),
		zap.String("class_id", classID),
		zap.String("opened_by", actor.UserID),
	)
	return session, nil
}

// Active returns the single active session for a class.
func (s *SessionService) Active(ctx context.Context, classID string) (*models.AttendanceSession, error) {
	if cached := s.cacheGet(ctx, classID); cached != nil {
		return cached, nil
	}

	session, err := s.sessions.Active(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveSession
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch active session")
	}

	s.cacheSet(ctx, session)
	return session, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.AttendanceSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	return session, nil
}

func (s *SessionService) cacheGet(ctx context.Context, classID string) *models.AttendanceSession {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, activeSessionKey(classID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("session cache read failed", zap.Error(err))
		}
		s.recordCache(false)
		return nil
	}
	var session models.AttendanceSession
	if err := json.Unmarshal(raw, &session); err != nil {
		s.recordCache(false)
		return nil
	}
	s.recordCache(true)
	return &session
}

func (s *SessionService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *SessionService) cacheSet(ctx context.Context, session *models.AttendanceSession) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, activeSessionKey(session.ClassID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("session cache write failed", zap.Error(err))
	}
}

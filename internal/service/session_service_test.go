package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions map[string]*models.AttendanceSession
	active   map[string]*models.AttendanceSession
	opened   []string
}

func (m *mockSessionRepo) Open(ctx context.Context, classID string) (*models.AttendanceSession, error) {
	session := &models.AttendanceSession{
		ID:        "sess-" + classID,
		ClassID:   classID,
		StartTime: time.Now().UTC(),
		IsActive:  true,
	}
	if m.active == nil {
		m.active = make(map[string]*models.AttendanceSession)
	}
	if prev, ok := m.active[classID]; ok {
		prev.IsActive = false
	}
	m.active[classID] = session
	m.opened = append(m.opened, classID)
	return session, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Active(ctx context.Context, classID string) (*models.AttendanceSession, error) {
	if s, ok := m.active[classID]; ok && s.IsActive {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassReaderByOwner struct {
	classes map[string]*models.Class
}

func (m *mockClassReaderByOwner) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newSessionService(repo *mockSessionRepo, classes *mockClassReaderByOwner) *SessionService {
	return NewSessionService(repo, classes, nil, time.Minute, nil, zap.NewNop())
}

func teacherClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleTeacher}
}

func TestOpenSessionByOwningTeacher(t *testing.T) {
	repo := &mockSessionRepo{}
	classes := &mockClassReaderByOwner{classes: map[string]*models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newSessionService(repo, classes)

	session, err := svc.Open(context.Background(), "c1", teacherClaims("t1"))
	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.Equal(t, []string{"c1"}, repo.opened)
}

func TestOpenSessionByOtherTeacher(t *testing.T) {
	classes := &mockClassReaderByOwner{classes: map[string]*models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newSessionService(&mockSessionRepo{}, classes)

	_, err := svc.Open(context.Background(), "c1", teacherClaims("t2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestOpenSessionByAdmin(t *testing.T) {
	classes := &mockClassReaderByOwner{classes: map[string]*models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newSessionService(&mockSessionRepo{}, classes)

	_, err := svc.Open(context.Background(), "c1", &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin})
	require.NoError(t, err)
}

func TestOpenSessionSupersedesActive(t *testing.T) {
	repo := &mockSessionRepo{}
	classes := &mockClassReaderByOwner{classes: map[string]*models.Class{"c1": {ID: "c1", TeacherID: "t1"}}}
	svc := newSessionService(repo, classes)

	first, err := svc.Open(context.Background(), "c1", teacherClaims("t1"))
	require.NoError(t, err)
	second, err := svc.Open(context.Background(), "c1", teacherClaims("t1"))
	require.NoError(t, err)

	assert.False(t, first.IsActive)
	assert.True(t, second.IsActive)
}

func TestOpenSessionUnknownClass(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReaderByOwner{})

	_, err := svc.Open(context.Background(), "ghost", teacherClaims("t1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestActiveSessionMissing(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReaderByOwner{})

	_, err := svc.Active(context.Background(), "c1")
	assert.ErrorIs(t, err, appErrors.ErrNoActiveSession)
}

func TestGetSessionMissing(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &mockClassReaderByOwner{})

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}

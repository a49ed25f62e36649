package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/faceclient"
	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

func newFaceService(users *mockUserRepo, extractor *mockExtractor, storage *mockProbeStorage) *FaceService {
	return NewFaceService(users, extractor, storage, time.Second, zap.NewNop())
}

func TestEnrollFirstTime(t *testing.T) {
	users := &mockUserRepo{users: map[string]*models.User{"u1": {ID: "u1", Active: true}}}
	extractor := &mockExtractor{embedding: []float64{0.1, 0.2, 0.3}}
	storage := &mockProbeStorage{}
	svc := newFaceService(users, extractor, storage)

	err := svc.Enroll(context.Background(), "u1", probeBody())
	require.NoError(t, err)
	require.Contains(t, users.embedded, "u1")
	assert.Len(t, users.embedded["u1"], 3)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestEnrollSecondTimeIsLocked(t *testing.T) {
	users := &mockUserRepo{users: map[string]*models.User{"u1": enrolledStudent("u1", []float64{1, 0, 0})}}
	extractor := &mockExtractor{embedding: []float64{0.1, 0.2, 0.3}}
	svc := newFaceService(users, extractor, &mockProbeStorage{})

	err := svc.Enroll(context.Background(), "u1", probeBody())
	assert.ErrorIs(t, err, appErrors.ErrReEnrollmentLocked)
	assert.Zero(t, extractor.calls)
	assert.Empty(t, users.embedded)
}

func TestEnrollWithApprovedGrant(t *testing.T) {
	user := enrolledStudent("u1", []float64{1, 0, 0})
	user.FaceUpdateAllowed = true
	users := &mockUserRepo{users: map[string]*models.User{"u1": user}}
	extractor := &mockExtractor{embedding: []float64{0.4, 0.5, 0.6}}
	svc := newFaceService(users, extractor, &mockProbeStorage{})

	err := svc.Enroll(context.Background(), "u1", probeBody())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.5, 0.6}, []float64(users.embedded["u1"]))
}

func TestEnrollNoFaceDetected(t *testing.T) {
	users := &mockUserRepo{users: map[string]*models.User{"u1": {ID: "u1", Active: true}}}
	extractor := &mockExtractor{err: faceclient.ErrNoFaceDetected}
	storage := &mockProbeStorage{}
	svc := newFaceService(users, extractor, storage)

	err := svc.Enroll(context.Background(), "u1", probeBody())
	assert.ErrorIs(t, err, appErrors.ErrNoFaceDetected)
	assert.Empty(t, users.embedded)
	assert.Equal(t, storage.saved, storage.deleted)
}

func TestEnrollUnknownUser(t *testing.T) {
	svc := newFaceService(&mockUserRepo{}, &mockExtractor{}, &mockProbeStorage{})

	err := svc.Enroll(context.Background(), "ghost", probeBody())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

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

type mockFaceRequestRepo struct {
	requests map[string]models.FaceUpdateRequest
	pending  map[string]bool
	created  *models.FaceUpdateRequest
}

func (m *mockFaceRequestRepo) Create(ctx context.Context, req *models.FaceUpdateRequest) error {
	if req.ID == "" {
		req.ID = "req-1"
	}
	req.Status = models.FaceRequestPending
	req.CreatedAt = time.Now().UTC()
	if m.requests == nil {
		m.requests = make(map[string]models.FaceUpdateRequest)
	}
	m.requests[req.ID] = *req
	m.created = req
	return nil
}

func (m *mockFaceRequestRepo) FindByID(ctx context.Context, id string) (*models.FaceUpdateRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFaceRequestRepo) HasPending(ctx context.Context, userID string) (bool, error) {
	return m.pending[userID], nil
}

func (m *mockFaceRequestRepo) LatestByUser(ctx context.Context, userID string) (*models.FaceUpdateRequest, error) {
	for _, r := range m.requests {
		if r.UserID == userID {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockFaceRequestRepo) List(ctx context.Context, status *models.FaceRequestStatus) ([]models.FaceUpdateRequestDetail, error) {
	var rows []models.FaceUpdateRequestDetail
	for _, r := range m.requests {
		if status != nil && r.Status != *status {
			continue
		}
		rows = append(rows, models.FaceUpdateRequestDetail{FaceUpdateRequest: r})
	}
	return rows, nil
}

func (m *mockFaceRequestRepo) Review(ctx context.Context, id, reviewerID string, status models.FaceRequestStatus, reviewedAt time.Time) (*models.FaceUpdateRequest, error) {
	r, ok := m.requests[id]
	if !ok || r.Status != models.FaceRequestPending {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &reviewedAt
	m.requests[id] = r
	return &r, nil
}

type mockNotifier struct {
	decided []models.FaceUpdateRequest
}

func (m *mockNotifier) ReviewDecided(req *models.FaceUpdateRequest) {
	m.decided = append(m.decided, *req)
}

func newFaceRequestService(requests *mockFaceRequestRepo, users *mockUserRepo, notifier *mockNotifier) *FaceRequestService {
	return NewFaceRequestService(requests, users, notifier, nil, zap.NewNop())
}

func TestCreateFaceRequest(t *testing.T) {
	requests := &mockFaceRequestRepo{}
	users := &mockUserRepo{users: map[string]*models.User{"u1": enrolledStudent("u1", []float64{1, 0, 0})}}
	svc := newFaceRequestService(requests, users, &mockNotifier{})

	req, err := svc.Create(context.Background(), "u1", CreateFaceRequestRequest{Reason: "my appearance changed after surgery"})
	require.NoError(t, err)
	assert.Equal(t, models.FaceRequestPending, req.Status)
	assert.Equal(t, "u1", req.UserID)
	require.NotNil(t, requests.created)
}

func TestCreateFaceRequestWithoutEnrollment(t *testing.T) {
	users := &mockUserRepo{users: map[string]*models.User{"u1": {ID: "u1", Active: true}}}
	svc := newFaceRequestService(&mockFaceRequestRepo{}, users, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u1", CreateFaceRequestRequest{Reason: "my appearance changed a lot"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFaceNotRegistered.Code, appErrors.FromError(err).Code)
}

func TestCreateFaceRequestDuplicatePending(t *testing.T) {
	requests := &mockFaceRequestRepo{pending: map[string]bool{"u1": true}}
	users := &mockUserRepo{users: map[string]*models.User{"u1": enrolledStudent("u1", []float64{1, 0, 0})}}
	svc := newFaceRequestService(requests, users, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u1", CreateFaceRequestRequest{Reason: "my appearance changed a lot"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateRequest)
}

func TestCreateFaceRequestShortReason(t *testing.T) {
	users := &mockUserRepo{users: map[string]*models.User{"u1": enrolledStudent("u1", []float64{1, 0, 0})}}
	svc := newFaceRequestService(&mockFaceRequestRepo{}, users, &mockNotifier{})

	_, err := svc.Create(context.Background(), "u1", CreateFaceRequestRequest{Reason: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApproveNotifies(t *testing.T) {
	requests := &mockFaceRequestRepo{requests: map[string]models.FaceUpdateRequest{
		"req-1": {ID: "req-1", UserID: "u1", Status: models.FaceRequestPending},
	}}
	notifier := &mockNotifier{}
	svc := newFaceRequestService(requests, &mockUserRepo{}, notifier)

	reviewed, err := svc.Approve(context.Background(), "req-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.FaceRequestApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "admin-1", *reviewed.ReviewedBy)
	require.Len(t, notifier.decided, 1)
	assert.Equal(t, "req-1", notifier.decided[0].ID)
}

func TestDenyLeavesGrantUntouched(t *testing.T) {
	requests := &mockFaceRequestRepo{requests: map[string]models.FaceUpdateRequest{
		"req-1": {ID: "req-1", UserID: "u1", Status: models.FaceRequestPending},
	}}
	svc := newFaceRequestService(requests, &mockUserRepo{}, &mockNotifier{})

	reviewed, err := svc.Deny(context.Background(), "req-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.FaceRequestDenied, reviewed.Status)
}

func TestReviewTwiceFails(t *testing.T) {
	requests := &mockFaceRequestRepo{requests: map[string]models.FaceUpdateRequest{
		"req-1": {ID: "req-1", UserID: "u1", Status: models.FaceRequestPending},
	}}
	svc := newFaceRequestService(requests, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "req-1", "admin-1")
	require.NoError(t, err)
	_, err = svc.Deny(context.Background(), "req-1", "admin-2")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestReviewUnknownRequest(t *testing.T) {
	svc := newFaceRequestService(&mockFaceRequestRepo{}, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), "ghost", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := newFaceRequestService(&mockFaceRequestRepo{}, &mockUserRepo{}, &mockNotifier{})

	_, err := svc.List(context.Background(), "bogus")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatusWithoutRequests(t *testing.T) {
	svc := newFaceRequestService(&mockFaceRequestRepo{}, &mockUserRepo{}, &mockNotifier{})

	latest, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type mockClassRepo struct {
	classes    map[string]*models.Class
	enrollment map[string][]string
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = make(map[string]*models.Class)
	}
	m.classes[class.ID] = class
	return nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	for _, c := range m.classes {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ListAll(ctx context.Context) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, c := range m.classes {
		out = append(out, models.ClassDetail{Class: *c})
	}
	return out, nil
}

func (m *mockClassRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, c := range m.classes {
		if c.TeacherID == teacherID {
			out = append(out, models.ClassDetail{Class: *c})
		}
	}
	return out, nil
}

func (m *mockClassRepo) ListForStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for classID, students := range m.enrollment {
		for _, sid := range students {
			if sid == studentID {
				out = append(out, models.ClassDetail{Class: *m.classes[classID]})
			}
		}
	}
	return out, nil
}

func (m *mockClassRepo) Enroll(ctx context.Context, classID, studentID string) (bool, error) {
	if m.enrollment == nil {
		m.enrollment = make(map[string][]string)
	}
	for _, sid := range m.enrollment[classID] {
		if sid == studentID {
			return false, nil
		}
	}
	m.enrollment[classID] = append(m.enrollment[classID], studentID)
	return true, nil
}

func newClassService(repo *mockClassRepo) *ClassService {
	return NewClassService(repo, nil, zap.NewNop())
}

func TestCreateClassGeneratesJoinCode(t *testing.T) {
	repo := &mockClassRepo{}
	svc := newClassService(repo)

	class, err := svc.Create(context.Background(), "t1", CreateClassRequest{Name: "Algebra II"})
	require.NoError(t, err)
	assert.Equal(t, "t1", class.TeacherID)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), class.Code)
	assert.Contains(t, repo.classes, class.ID)
}

func TestJoinClassByCode(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Algebra II", Code: "AB12CD34", TeacherID: "t1"},
	}}
	svc := newClassService(repo)

	class, err := svc.Join(context.Background(), "s1", "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, "c1", class.ID)
	assert.Contains(t, repo.enrollment["c1"], "s1")
}

func TestJoinClassTwice(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]*models.Class{
		"c1": {ID: "c1", Code: "AB12CD34", TeacherID: "t1"},
	}}
	svc := newClassService(repo)

	_, err := svc.Join(context.Background(), "s1", "AB12CD34")
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), "s1", "AB12CD34")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestJoinClassUnknownCode(t *testing.T) {
	svc := newClassService(&mockClassRepo{})

	_, err := svc.Join(context.Background(), "s1", "NOPE0000")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListClassesByRole(t *testing.T) {
	repo := &mockClassRepo{
		classes: map[string]*models.Class{
			"c1": {ID: "c1", TeacherID: "t1"},
			"c2": {ID: "c2", TeacherID: "t2"},
		},
		enrollment: map[string][]string{"c2": {"s1"}},
	}
	svc := newClassService(repo)

	all, err := svc.List(context.Background(), "a1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(context.Background(), "t1", models.RoleTeacher)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "c1", own[0].ID)

	joined, err := svc.List(context.Background(), "s1", models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "c2", joined[0].ID)
}

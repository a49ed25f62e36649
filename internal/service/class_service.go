package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type classRepository interface {
	Create(ctx context.Context, class *models.Class) error
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindByCode(ctx context.Context, code string) (*models.Class, error)
	ListAll(ctx context.Context) ([]models.ClassDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error)
	Enroll(ctx context.Context, classID, studentID string) (bool, error)
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=128"`
	Description *string `json:"description" validate:"omitempty,max=512"`
}

// ClassService manages classes and student enrollment.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new class owned by the given teacher, with a generated
// join code students use to enroll.
func (s *ClassService) Create(ctx context.Context, teacherID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	code, err := generateClassCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate class code")
	}

	class := &models.Class{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		Description: req.Description,
		TeacherID:   teacherID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created",
		zap.String("class_id", class.ID),
		zap.String("teacher_id", teacherID),
	)
	return class, nil
}

// List returns the classes visible to the caller. Admins see everything,
// teachers their own classes, students the classes they joined.
func (s *ClassService) List(ctx context.Context, userID string, role models.UserRole) ([]models.ClassDetail, error) {
	var (
		classes []models.ClassDetail
		err     error
	)
	switch role {
	case models.RoleAdmin:
		classes, err = s.repo.ListAll(ctx)
	case models.RoleTeacher:
		classes, err = s.repo.ListByTeacher(ctx, userID)
	default:
		classes, err = s.repo.ListForStudent(ctx, userID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if classes == nil {
		classes = []models.ClassDetail{}
	}
	return classes, nil
}

// Get loads a single class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	return class, nil
}

// Join enrolls the student in the class identified by its join code. Joining
// a class twice is rejected.
func (s *ClassService) Join(ctx context.Context, studentID, code string) (*models.Class, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class code is required")
	}

	class, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no class with that code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}

	enrolled, err := s.repo.Enroll(ctx, class.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join class")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this class")
	}

	s.logger.Info("student joined class",
		zap.String("class_id", class.ID),
		zap.String("student_id", studentID),
	)
	return class, nil
}

// generateClassCode returns an 8 character uppercase hex join code.
func generateClassCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

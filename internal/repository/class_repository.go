package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

const classDetailColumns = `c.id, c.name, c.code, c.description, c.teacher_id, c.created_at,
	(SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS student_count`

// ClassRepository manages classes and their student rosters.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO classes (id, name, code, description, teacher_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		class.ID, class.Name, class.Code, class.Description, class.TeacherID, class.CreatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, code, description, teacher_id, created_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindByCode returns a class by its join code.
func (r *ClassRepository) FindByCode(ctx context.Context, code string) (*models.Class, error) {
	const query = `SELECT id, name, code, description, teacher_id, created_at FROM classes WHERE code = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by code: %w", err)
	}
	return &class, nil
}

// ListAll returns every class with its student count.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c ORDER BY c.created_at DESC`, classDetailColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListByTeacher returns the classes a teacher owns.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c WHERE c.teacher_id = $1 ORDER BY c.created_at DESC`, classDetailColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by teacher: %w", err)
	}
	return classes, nil
}

// ListForStudent returns the classes a student is enrolled in.
func (r *ClassRepository) ListForStudent(ctx context.Context, studentID string) ([]models.ClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c
JOIN class_students m ON m.class_id = c.id
WHERE m.student_id = $1
ORDER BY c.created_at DESC`, classDetailColumns)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, studentID); err != nil {
		return nil, fmt.Errorf("list classes for student: %w", err)
	}
	return classes, nil
}

// Enroll adds a student to a class roster. It reports enrolled=false when
// the student was already on the roster.
func (r *ClassRepository) Enroll(ctx context.Context, classID, studentID string) (bool, error) {
	const query = `INSERT INTO class_students (class_id, student_id)
VALUES ($1, $2)
ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classID, studentID)
	if err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}
	return affected > 0, nil
}

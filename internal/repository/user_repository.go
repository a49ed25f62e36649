package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, role, face_embedding, face_update_allowed, active, created_at, updated_at`

// UserRepository provides database access for users and their face identity.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, username, email, password_hash, full_name, role, face_embedding, face_update_allowed, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.FullName,
		user.Role, user.FaceEmbedding, user.FaceUpdateAllowed, user.Active,
		user.CreatedAt, user.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// ExistsByUsernameOrEmail reports whether a user with the username or email
// already exists.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username, email); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// SetFaceEmbedding replaces the stored embedding and consumes any pending
// re-enrollment grant in the same statement, so a single approval can never
// be reused for two enrollments.
func (r *UserRepository) SetFaceEmbedding(ctx context.Context, id string, embedding pq.Float64Array) error {
	const query = `UPDATE users SET face_embedding = $2, face_update_allowed = FALSE, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, embedding, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set face embedding: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Update persists the mutable account fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET full_name = :full_name, email = :email, role = :role, active = :active, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete performs a soft delete by marking the user inactive.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		userColumns, baseQuery, size, (page-1)*size)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// PlatformStats aggregates counts for the admin dashboard.
type PlatformStats struct {
	TotalUsers     int `db:"total_users" json:"total_users"`
	TotalClasses   int `db:"total_classes" json:"total_classes"`
	ActiveStudents int `db:"active_students" json:"active_students"`
}

// Stats returns platform-wide counters.
func (r *UserRepository) Stats(ctx context.Context) (*PlatformStats, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM users) AS total_users,
	(SELECT COUNT(*) FROM classes) AS total_classes,
	(SELECT COUNT(*) FROM users WHERE role = 'STUDENT' AND active) AS active_students`
	var stats PlatformStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	return &stats, nil
}

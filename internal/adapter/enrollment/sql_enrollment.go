package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnhub/internal/domain"

	"github.com/jmoiron/sqlx"
)

// SQLEnrollmentAdapter answers enrollment and role queries from the shared
// database. The engine treats the answers as authoritative and never caches
// them across requests.
type SQLEnrollmentAdapter struct {
	db *sqlx.DB
}

// NewSQLEnrollmentAdapter creates a new SQLEnrollmentAdapter instance
func NewSQLEnrollmentAdapter(db *sqlx.DB) domain.EnrollmentService {
	return &SQLEnrollmentAdapter{db: db}
}

func (a *SQLEnrollmentAdapter) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var enrolled bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM enrollments
	            WHERE user_id = $1 AND course_id = $2 AND revoked_at IS NULL
	          )`
	if err := a.db.GetContext(ctx, &enrolled, query, userID, courseID); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}

func (a *SQLEnrollmentAdapter) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	var role string
	query := `SELECT role FROM users WHERE id = $1`
	if err := a.db.GetContext(ctx, &role, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RoleStudent, domain.NewNotFoundError("user not found")
		}
		return domain.RoleStudent, fmt.Errorf("failed to resolve role: %w", err)
	}
	return domain.Role(role), nil
}

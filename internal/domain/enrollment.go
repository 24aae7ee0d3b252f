package domain

import "context"

// Role is the caller's role as reported by the authorization collaborator.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Privileged reports whether the role bypasses hierarchy gating (preview).
func (r Role) Privileged() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// EnrollmentService is the read-only port to the enrollment/authorization
// collaborator. Answers are authoritative and must not be cached across
// requests.
type EnrollmentService interface {
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	GetRole(ctx context.Context, userID string) (Role, error)
}

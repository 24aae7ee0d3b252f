package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/repository/models"
	"learnhub/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxAttemptRepository implements domain.AttemptRepository using sqlx.
type sqlxAttemptRepository struct {
	db *sqlx.DB
}

// NewSQLXAttemptRepository creates a new instance of sqlxAttemptRepository.
func NewSQLXAttemptRepository(db *sqlx.DB) domain.AttemptRepository {
	return &sqlxAttemptRepository{db: db}
}

func toDomainAttempt(m *models.QuizAttempt) *domain.QuizAttempt {
	if m == nil {
		return nil
	}
	return &domain.QuizAttempt{
		ID:                  m.ID,
		QuizID:              m.QuizID,
		UserID:              m.UserID,
		AttemptNumber:       m.AttemptNumber,
		Status:              domain.AttemptStatus(m.Status),
		StartedAt:           m.StartedAt,
		CompletedAt:         util.NullTimeToPtr(m.CompletedAt),
		Score:               m.Score,
		TotalPossiblePoints: m.TotalPossiblePoints,
		Passed:              m.Passed,
	}
}

func fromDomainAttempt(a *domain.QuizAttempt) *models.QuizAttempt {
	if a == nil {
		return nil
	}
	return &models.QuizAttempt{
		ID:                  a.ID,
		QuizID:              a.QuizID,
		UserID:              a.UserID,
		AttemptNumber:       a.AttemptNumber,
		Status:              string(a.Status),
		StartedAt:           a.StartedAt,
		CompletedAt:         util.TimePtrToNullTime(a.CompletedAt),
		Score:               a.Score,
		TotalPossiblePoints: a.TotalPossiblePoints,
		Passed:              a.Passed,
	}
}

func (r *sqlxAttemptRepository) GetAttemptByID(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.QuizAttempt
	query := `SELECT * FROM quiz_attempts WHERE id = $1`
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz attempt: %w", err)
	}
	return toDomainAttempt(&m), nil
}

func (r *sqlxAttemptRepository) GetInProgress(ctx context.Context, quizID, userID string) (*domain.QuizAttempt, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.QuizAttempt
	query := `SELECT * FROM quiz_attempts
	          WHERE quiz_id = $1 AND user_id = $2 AND status = $3`
	if err := exec.GetContext(ctx, &m, query, quizID, userID, string(domain.AttemptInProgress)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get in-progress attempt: %w", err)
	}
	return toDomainAttempt(&m), nil
}

// CountAttempts locks the matching rows so the count stays valid while the
// caller's transaction allocates the next attempt number.
func (r *sqlxAttemptRepository) CountAttempts(ctx context.Context, quizID, userID string) (int, error) {
	exec := GetExecutor(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM (
	            SELECT id FROM quiz_attempts
	            WHERE quiz_id = $1 AND user_id = $2
	            FOR UPDATE
	          ) locked`
	if err := exec.GetContext(ctx, &count, query, quizID, userID); err != nil {
		return 0, fmt.Errorf("failed to count quiz attempts: %w", err)
	}
	return count, nil
}

func (r *sqlxAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	exec := GetExecutor(ctx, r.db)

	m := fromDomainAttempt(attempt)
	if m.StartedAt.IsZero() {
		m.StartedAt = time.Now()
	}

	query := `INSERT INTO quiz_attempts
	          (id, quiz_id, user_id, attempt_number, status, started_at, completed_at, score, total_possible_points, passed)
	          VALUES (:id, :quiz_id, :user_id, :attempt_number, :status, :started_at, :completed_at, :score, :total_possible_points, :passed)`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("concurrent attempt detected", err)
		}
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}
	return nil
}

func (r *sqlxAttemptRepository) UpdateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	exec := GetExecutor(ctx, r.db)

	m := fromDomainAttempt(attempt)
	query := `UPDATE quiz_attempts SET
	            status = :status,
	            completed_at = :completed_at,
	            score = :score,
	            total_possible_points = :total_possible_points,
	            passed = :passed
	          WHERE id = :id`
	res, err := exec.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("failed to update quiz attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("attempt not found")
	}
	return nil
}

func (r *sqlxAttemptRepository) SaveAnswers(ctx context.Context, answers []*domain.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	exec := GetExecutor(ctx, r.db)

	query := `INSERT INTO user_answers
	          (id, attempt_id, question_id, selected_option_id, bool_answer, is_correct, points_earned, answered_at)
	          VALUES (:id, :attempt_id, :question_id, :selected_option_id, :bool_answer, :is_correct, :points_earned, :answered_at)`
	for _, a := range answers {
		m := &models.UserAnswer{
			ID:               a.ID,
			AttemptID:        a.AttemptID,
			QuestionID:       a.QuestionID,
			SelectedOptionID: util.StringToNullString(a.SelectedOptionID),
			BoolAnswer:       util.BoolPtrToNullBool(a.BoolAnswer),
			IsCorrect:        a.IsCorrect,
			PointsEarned:     a.PointsEarned,
			AnsweredAt:       a.AnsweredAt,
		}
		if m.AnsweredAt.IsZero() {
			m.AnsweredAt = time.Now()
		}
		if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
			if isUniqueViolation(err) {
				return domain.NewConflictError("answer already recorded for question", err)
			}
			return fmt.Errorf("failed to save user answer: %w", err)
		}
	}
	return nil
}

func (r *sqlxAttemptRepository) HasPassed(ctx context.Context, quizID, userID string) (bool, error) {
	exec := GetExecutor(ctx, r.db)

	var passed bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM quiz_attempts
	            WHERE quiz_id = $1 AND user_id = $2 AND status = $3 AND passed = TRUE
	          )`
	if err := exec.GetContext(ctx, &passed, query, quizID, userID, string(domain.AttemptGraded)); err != nil {
		return false, fmt.Errorf("failed to check passed attempts: %w", err)
	}
	return passed, nil
}

func (r *sqlxAttemptRepository) ListExpirable(ctx context.Context, now time.Time) ([]*domain.QuizAttempt, error) {
	exec := GetExecutor(ctx, r.db)

	var ms []models.QuizAttempt
	// A NULL or zero time_limit_minutes means the quiz has no limit.
	query := `SELECT qa.* FROM quiz_attempts qa
	          JOIN quizzes q ON qa.quiz_id = q.id
	          WHERE qa.status = $1
	            AND q.time_limit_minutes > 0
	            AND qa.started_at + (q.time_limit_minutes * INTERVAL '1 minute') < $2`
	if err := exec.SelectContext(ctx, &ms, query, string(domain.AttemptInProgress), now); err != nil {
		return nil, fmt.Errorf("failed to list expirable attempts: %w", err)
	}

	attempts := make([]*domain.QuizAttempt, len(ms))
	for i := range ms {
		attempts[i] = toDomainAttempt(&ms[i])
	}
	return attempts, nil
}

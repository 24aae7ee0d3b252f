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

// sqlxPointsRepository implements domain.PointsRepository using sqlx.
type sqlxPointsRepository struct {
	db *sqlx.DB
}

// NewSQLXPointsRepository creates a new instance of sqlxPointsRepository.
func NewSQLXPointsRepository(db *sqlx.DB) domain.PointsRepository {
	return &sqlxPointsRepository{db: db}
}

func toDomainCoursePoints(m *models.CoursePoints) *domain.CoursePoints {
	if m == nil {
		return nil
	}
	return &domain.CoursePoints{
		UserID:        m.UserID,
		CourseID:      m.CourseID,
		TotalPoints:   m.TotalPoints,
		QuizPoints:    m.QuizPoints,
		BonusPoints:   m.BonusPoints,
		PenaltyPoints: m.PenaltyPoints,
		CurrentRank:   int(m.CurrentRank.Int64),
		LastUpdated:   m.LastUpdated,
	}
}

func toDomainPointTransaction(m *models.PointTransaction) *domain.PointTransaction {
	if m == nil {
		return nil
	}
	return &domain.PointTransaction{
		ID:              m.ID,
		UserID:          m.UserID,
		CourseID:        m.CourseID,
		PointsChanged:   m.PointsChanged,
		PointsAfter:     m.PointsAfter,
		Source:          domain.PointSource(m.Source),
		Description:     m.Description.String,
		QuizAttemptID:   m.QuizAttemptID.String,
		AwardedByUserID: m.AwardedByUserID.String,
		CreatedAt:       m.CreatedAt,
	}
}

func (r *sqlxPointsRepository) getCoursePoints(ctx context.Context, userID, courseID string, forUpdate bool) (*domain.CoursePoints, error) {
	exec := GetExecutor(ctx, r.db)

	query := `SELECT * FROM course_points WHERE user_id = $1 AND course_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var m models.CoursePoints
	if err := exec.GetContext(ctx, &m, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course points: %w", err)
	}
	return toDomainCoursePoints(&m), nil
}

func (r *sqlxPointsRepository) GetCoursePoints(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	return r.getCoursePoints(ctx, userID, courseID, false)
}

func (r *sqlxPointsRepository) GetCoursePointsForUpdate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	return r.getCoursePoints(ctx, userID, courseID, true)
}

func (r *sqlxPointsRepository) CreateCoursePoints(ctx context.Context, cp *domain.CoursePoints) error {
	exec := GetExecutor(ctx, r.db)

	m := &models.CoursePoints{
		UserID:        cp.UserID,
		CourseID:      cp.CourseID,
		TotalPoints:   cp.TotalPoints,
		QuizPoints:    cp.QuizPoints,
		BonusPoints:   cp.BonusPoints,
		PenaltyPoints: cp.PenaltyPoints,
		LastUpdated:   cp.LastUpdated,
	}
	if cp.CurrentRank > 0 {
		m.CurrentRank = sql.NullInt64{Int64: int64(cp.CurrentRank), Valid: true}
	}
	if m.LastUpdated.IsZero() {
		m.LastUpdated = time.Now()
	}

	query := `INSERT INTO course_points
	          (user_id, course_id, total_points, quiz_points, bonus_points, penalty_points, current_rank, last_updated)
	          VALUES (:user_id, :course_id, :total_points, :quiz_points, :bonus_points, :penalty_points, :current_rank, :last_updated)`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("course points row already exists", err)
		}
		return fmt.Errorf("failed to create course points: %w", err)
	}
	return nil
}

func (r *sqlxPointsRepository) UpdateCoursePoints(ctx context.Context, cp *domain.CoursePoints) error {
	exec := GetExecutor(ctx, r.db)

	query := `UPDATE course_points SET
	            total_points = $1,
	            quiz_points = $2,
	            bonus_points = $3,
	            penalty_points = $4,
	            last_updated = $5
	          WHERE user_id = $6 AND course_id = $7`
	res, err := exec.ExecContext(ctx, query,
		cp.TotalPoints, cp.QuizPoints, cp.BonusPoints, cp.PenaltyPoints, cp.LastUpdated,
		cp.UserID, cp.CourseID)
	if err != nil {
		return fmt.Errorf("failed to update course points: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("course points row not found")
	}
	return nil
}

func (r *sqlxPointsRepository) InsertTransaction(ctx context.Context, tx *domain.PointTransaction) error {
	exec := GetExecutor(ctx, r.db)

	m := &models.PointTransaction{
		ID:              tx.ID,
		UserID:          tx.UserID,
		CourseID:        tx.CourseID,
		PointsChanged:   tx.PointsChanged,
		PointsAfter:     tx.PointsAfter,
		Source:          string(tx.Source),
		Description:     util.StringToNullString(tx.Description),
		QuizAttemptID:   util.StringToNullString(tx.QuizAttemptID),
		AwardedByUserID: util.StringToNullString(tx.AwardedByUserID),
		CreatedAt:       tx.CreatedAt,
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `INSERT INTO point_transactions
	          (id, user_id, course_id, points_changed, points_after, source, description, quiz_attempt_id, awarded_by_user_id, created_at)
	          VALUES (:id, :user_id, :course_id, :points_changed, :points_after, :source, :description, :quiz_attempt_id, :awarded_by_user_id, :created_at)`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("attempt already awarded", err)
		}
		return fmt.Errorf("failed to insert point transaction: %w", err)
	}
	return nil
}

func (r *sqlxPointsRepository) ListTransactions(ctx context.Context, userID, courseID string) ([]*domain.PointTransaction, error) {
	exec := GetExecutor(ctx, r.db)

	var ms []models.PointTransaction
	// ULIDs sort in insertion order, which keeps replay deterministic even
	// when two rows share a created_at timestamp.
	query := `SELECT * FROM point_transactions
	          WHERE user_id = $1 AND course_id = $2
	          ORDER BY created_at, id`
	if err := exec.SelectContext(ctx, &ms, query, userID, courseID); err != nil {
		return nil, fmt.Errorf("failed to list point transactions: %w", err)
	}

	txs := make([]*domain.PointTransaction, len(ms))
	for i := range ms {
		txs[i] = toDomainPointTransaction(&ms[i])
	}
	return txs, nil
}

func (r *sqlxPointsRepository) HasQuizAward(ctx context.Context, quizAttemptID string) (bool, error) {
	exec := GetExecutor(ctx, r.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM point_transactions WHERE quiz_attempt_id = $1)`
	if err := exec.GetContext(ctx, &exists, query, quizAttemptID); err != nil {
		return false, fmt.Errorf("failed to check quiz award: %w", err)
	}
	return exists, nil
}

func (r *sqlxPointsRepository) ListCourseAggregates(ctx context.Context, courseID string) ([]*domain.CoursePoints, error) {
	exec := GetExecutor(ctx, r.db)

	var ms []models.CoursePoints
	// Ties break toward whoever reached the total first.
	query := `SELECT * FROM course_points
	          WHERE course_id = $1
	          ORDER BY total_points DESC, last_updated ASC, user_id ASC`
	if err := exec.SelectContext(ctx, &ms, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list course aggregates: %w", err)
	}

	aggs := make([]*domain.CoursePoints, len(ms))
	for i := range ms {
		aggs[i] = toDomainCoursePoints(&ms[i])
	}
	return aggs, nil
}

func (r *sqlxPointsRepository) UpdateRank(ctx context.Context, userID, courseID string, rank int) error {
	exec := GetExecutor(ctx, r.db)

	query := `UPDATE course_points SET current_rank = $1 WHERE user_id = $2 AND course_id = $3`
	if _, err := exec.ExecContext(ctx, query, rank, userID, courseID); err != nil {
		return fmt.Errorf("failed to update rank: %w", err)
	}
	return nil
}

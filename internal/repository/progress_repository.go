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

// sqlxProgressRepository implements domain.ProgressRepository using sqlx.
type sqlxProgressRepository struct {
	db *sqlx.DB
}

// NewSQLXProgressRepository creates a new instance of sqlxProgressRepository.
func NewSQLXProgressRepository(db *sqlx.DB) domain.ProgressRepository {
	return &sqlxProgressRepository{db: db}
}

func toDomainCursor(m *models.ProgressCursor) *domain.ProgressCursor {
	if m == nil {
		return nil
	}
	return &domain.ProgressCursor{
		UserID:           m.UserID,
		CourseID:         m.CourseID,
		CurrentLevelID:   m.CurrentLevelID.String,
		CurrentSectionID: m.CurrentSectionID.String,
		CurrentContentID: m.CurrentContentID.String,
		LastAccessed:     m.LastAccessed,
		CompletedAt:      util.NullTimeToPtr(m.CompletedAt),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromDomainCursor(c *domain.ProgressCursor) *models.ProgressCursor {
	if c == nil {
		return nil
	}
	return &models.ProgressCursor{
		UserID:           c.UserID,
		CourseID:         c.CourseID,
		CurrentLevelID:   util.StringToNullString(c.CurrentLevelID),
		CurrentSectionID: util.StringToNullString(c.CurrentSectionID),
		CurrentContentID: util.StringToNullString(c.CurrentContentID),
		LastAccessed:     c.LastAccessed,
		CompletedAt:      util.TimePtrToNullTime(c.CompletedAt),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (r *sqlxProgressRepository) GetCursor(ctx context.Context, userID, courseID string) (*domain.ProgressCursor, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.ProgressCursor
	query := `SELECT * FROM progress_cursors WHERE user_id = $1 AND course_id = $2`
	if err := exec.GetContext(ctx, &m, query, userID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress cursor: %w", err)
	}
	return toDomainCursor(&m), nil
}

func (r *sqlxProgressRepository) SaveCursor(ctx context.Context, cursor *domain.ProgressCursor) error {
	exec := GetExecutor(ctx, r.db)

	m := fromDomainCursor(cursor)
	m.UpdatedAt = time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = m.UpdatedAt
	}

	query := `INSERT INTO progress_cursors
	          (user_id, course_id, current_level_id, current_section_id, current_content_id, last_accessed, completed_at, created_at, updated_at)
	          VALUES (:user_id, :course_id, :current_level_id, :current_section_id, :current_content_id, :last_accessed, :completed_at, :created_at, :updated_at)
	          ON CONFLICT (user_id, course_id) DO UPDATE SET
	            current_level_id = EXCLUDED.current_level_id,
	            current_section_id = EXCLUDED.current_section_id,
	            current_content_id = EXCLUDED.current_content_id,
	            last_accessed = EXCLUDED.last_accessed,
	            completed_at = EXCLUDED.completed_at,
	            updated_at = EXCLUDED.updated_at`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("failed to save progress cursor: %w", err)
	}
	return nil
}

func (r *sqlxProgressRepository) GetCompletion(ctx context.Context, userID, nodeID string) (*domain.NodeCompletion, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.NodeCompletion
	query := `SELECT * FROM node_completions WHERE user_id = $1 AND node_id = $2`
	if err := exec.GetContext(ctx, &m, query, userID, nodeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get node completion: %w", err)
	}
	return &domain.NodeCompletion{
		ID:          m.ID,
		UserID:      m.UserID,
		NodeID:      m.NodeID,
		CourseID:    m.CourseID,
		CompletedAt: m.CompletedAt,
	}, nil
}

func (r *sqlxProgressRepository) CreateCompletion(ctx context.Context, completion *domain.NodeCompletion) error {
	exec := GetExecutor(ctx, r.db)

	m := &models.NodeCompletion{
		ID:          completion.ID,
		UserID:      completion.UserID,
		NodeID:      completion.NodeID,
		CourseID:    completion.CourseID,
		CompletedAt: completion.CompletedAt,
	}
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now()
	}

	query := `INSERT INTO node_completions (id, user_id, node_id, course_id, completed_at)
	          VALUES (:id, :user_id, :node_id, :course_id, :completed_at)`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("node already completed", err)
		}
		return fmt.Errorf("failed to create node completion: %w", err)
	}
	return nil
}

func (r *sqlxProgressRepository) GetOpenSession(ctx context.Context, userID, contentID string) (*domain.ContentSession, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.ContentSession
	query := `SELECT * FROM content_sessions
	          WHERE user_id = $1 AND content_id = $2 AND ended_at IS NULL
	          ORDER BY started_at DESC
	          LIMIT 1`
	if err := exec.GetContext(ctx, &m, query, userID, contentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open content session: %w", err)
	}
	return &domain.ContentSession{
		ID:        m.ID,
		UserID:    m.UserID,
		ContentID: m.ContentID,
		StartedAt: m.StartedAt,
		EndedAt:   util.NullTimeToPtr(m.EndedAt),
	}, nil
}

func (r *sqlxProgressRepository) CreateSession(ctx context.Context, session *domain.ContentSession) error {
	exec := GetExecutor(ctx, r.db)

	m := &models.ContentSession{
		ID:        session.ID,
		UserID:    session.UserID,
		ContentID: session.ContentID,
		StartedAt: session.StartedAt,
		EndedAt:   util.TimePtrToNullTime(session.EndedAt),
	}
	if m.StartedAt.IsZero() {
		m.StartedAt = time.Now()
	}

	query := `INSERT INTO content_sessions (id, user_id, content_id, started_at, ended_at)
	          VALUES (:id, :user_id, :content_id, :started_at, :ended_at)`
	if _, err := exec.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("failed to create content session: %w", err)
	}
	return nil
}

func (r *sqlxProgressRepository) CloseSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	exec := GetExecutor(ctx, r.db)

	query := `UPDATE content_sessions SET ended_at = $1 WHERE id = $2 AND ended_at IS NULL`
	res, err := exec.ExecContext(ctx, query, endedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to close content session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewNotFoundError("no open session to close")
	}
	return nil
}

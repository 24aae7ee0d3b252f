package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"learnhub/internal/domain"
	"learnhub/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

// sqlxQuizRepository implements domain.QuizRepository using sqlx.
type sqlxQuizRepository struct {
	db *sqlx.DB
}

// NewSQLXQuizRepository creates a new instance of sqlxQuizRepository.
func NewSQLXQuizRepository(db *sqlx.DB) domain.QuizRepository {
	return &sqlxQuizRepository{db: db}
}

func toDomainQuiz(m *models.Quiz) (*domain.Quiz, error) {
	if m == nil {
		return nil, nil
	}
	var scope domain.QuizScope
	switch domain.QuizKind(m.Kind) {
	case domain.QuizKindContent:
		scope = domain.ContentScope(m.ContentID.String)
	case domain.QuizKindSection:
		scope = domain.SectionScope(m.SectionID.String)
	case domain.QuizKindLevel:
		scope = domain.LevelScope(m.LevelID.String)
	case domain.QuizKindCourse:
		scope = domain.CourseScope()
	default:
		return nil, fmt.Errorf("quiz %s has unknown kind %q", m.ID, m.Kind)
	}
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("quiz %s has inconsistent scope columns: %w", m.ID, err)
	}

	return &domain.Quiz{
		ID:                  m.ID,
		CourseID:            m.CourseID,
		Scope:               scope,
		Title:               m.Title,
		MaxAttempts:         m.MaxAttempts,
		PassingScorePercent: m.PassingScorePercent,
		TimeLimitMinutes:    int(m.TimeLimitMinutes.Int64),
		IsActive:            m.IsActive,
		IsDeleted:           m.IsDeleted,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

func (r *sqlxQuizRepository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.Quiz
	query := `SELECT * FROM quizzes WHERE id = $1`
	if err := exec.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	return toDomainQuiz(&m)
}

func (r *sqlxQuizRepository) GetQuestions(ctx context.Context, quizID string) ([]*domain.Question, error) {
	exec := GetExecutor(ctx, r.db)

	var qms []models.Question
	query := `SELECT * FROM questions WHERE quiz_id = $1 ORDER BY order_key`
	if err := exec.SelectContext(ctx, &qms, query, quizID); err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(qms) == 0 {
		return nil, nil
	}

	var oms []models.QuestionOption
	optQuery := `SELECT qo.* FROM question_options qo
	             JOIN questions q ON qo.question_id = q.id
	             WHERE q.quiz_id = $1
	             ORDER BY qo.order_key`
	if err := exec.SelectContext(ctx, &oms, optQuery, quizID); err != nil {
		return nil, fmt.Errorf("failed to get question options: %w", err)
	}

	optionsByQuestion := make(map[string][]*domain.QuestionOption, len(qms))
	for i := range oms {
		om := &oms[i]
		optionsByQuestion[om.QuestionID] = append(optionsByQuestion[om.QuestionID], &domain.QuestionOption{
			ID:         om.ID,
			QuestionID: om.QuestionID,
			Text:       om.Text,
			OrderKey:   om.OrderKey,
			IsCorrect:  om.IsCorrect,
		})
	}

	questions := make([]*domain.Question, len(qms))
	for i := range qms {
		qm := &qms[i]
		questions[i] = &domain.Question{
			ID:          qm.ID,
			QuizID:      qm.QuizID,
			Type:        domain.QuestionType(qm.Type),
			Text:        qm.Text,
			Points:      qm.Points,
			OrderKey:    qm.OrderKey,
			CorrectBool: qm.CorrectBool.Bool,
			Options:     optionsByQuestion[qm.ID],
			CreatedAt:   qm.CreatedAt,
			UpdatedAt:   qm.UpdatedAt,
		}
	}
	return questions, nil
}

func (r *sqlxQuizRepository) GetQuizzesByScopeNode(ctx context.Context, nodeID string) ([]*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var ms []models.Quiz
	query := `SELECT * FROM quizzes
	          WHERE (content_id = $1 OR section_id = $1 OR level_id = $1)
	            AND is_active = TRUE AND is_deleted = FALSE
	          ORDER BY created_at`
	if err := exec.SelectContext(ctx, &ms, query, nodeID); err != nil {
		return nil, fmt.Errorf("failed to get quizzes by scope node: %w", err)
	}

	quizzes := make([]*domain.Quiz, 0, len(ms))
	for i := range ms {
		q, err := toDomainQuiz(&ms[i])
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

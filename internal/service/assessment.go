package service

import (
	"context"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/dto"
	"learnhub/internal/logger"
	"learnhub/internal/util"

	"go.uber.org/zap"
)

// AssessmentService runs quiz attempts from start to grading.
type AssessmentService interface {
	// StartAttempt opens a new attempt for the pair, allocating the next
	// attempt number.
	StartAttempt(ctx context.Context, quizID, userID string) (*dto.StartAttemptResponse, error)

	// SubmitAttempt grades the submitted answers and closes the attempt.
	// An attempt past its time limit is expired instead and the submission
	// rejected.
	SubmitAttempt(ctx context.Context, attemptID, userID string, req *dto.SubmitAttemptRequest) (*dto.SubmitAttemptResponse, error)

	// HasPassed reports whether the user ever passed the quiz.
	HasPassed(ctx context.Context, quizID, userID string) (bool, error)
}

type assessmentService struct {
	quizzes    domain.QuizRepository
	attempts   domain.AttemptRepository
	progress   ProgressService
	points     PointsService
	ranking    RankingService
	enrollment domain.EnrollmentService
	txManager  domain.TransactionManager
	publisher  domain.EventPublisher
}

// NewAssessmentService creates a new instance of assessmentService
func NewAssessmentService(
	quizzes domain.QuizRepository,
	attempts domain.AttemptRepository,
	progress ProgressService,
	points PointsService,
	ranking RankingService,
	enrollment domain.EnrollmentService,
	txManager domain.TransactionManager,
	publisher domain.EventPublisher,
) AssessmentService {
	return &assessmentService{
		quizzes:    quizzes,
		attempts:   attempts,
		progress:   progress,
		points:     points,
		ranking:    ranking,
		enrollment: enrollment,
		txManager:  txManager,
		publisher:  publisher,
	}
}

func (s *assessmentService) StartAttempt(ctx context.Context, quizID, userID string) (*dto.StartAttemptResponse, error) {
	quiz, err := s.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load quiz", err)
	}
	if quiz == nil || !quiz.Available() {
		return nil, domain.NewNotFoundError("quiz not found")
	}

	role, err := s.enrollment.GetRole(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to resolve role", err)
	}

	if !role.Privileged() {
		enrolled, err := s.enrollment.IsEnrolled(ctx, userID, quiz.CourseID)
		if err != nil {
			return nil, domain.NewInternalError("failed to check enrollment", err)
		}
		if !enrolled {
			return nil, domain.NewForbiddenError("not enrolled in course")
		}

		// Course exams have no scope node and are reachable to any enrollee.
		if nodeID := quiz.Scope.NodeID(); nodeID != "" {
			reachable, err := s.progress.CanAccess(ctx, userID, nodeID)
			if err != nil {
				return nil, err
			}
			if !reachable {
				return nil, domain.NewInvalidOperationError("quiz is not reachable yet")
			}
		}
	}

	var attempt *domain.QuizAttempt
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		inProgress, err := s.attempts.GetInProgress(txCtx, quizID, userID)
		if err != nil {
			return err
		}
		if inProgress != nil {
			return domain.NewInvalidOperationError("an attempt is already in progress")
		}

		// The count read locks the pair's rows; the unique attempt_number
		// constraint backstops the phantom insert race.
		count, err := s.attempts.CountAttempts(txCtx, quizID, userID)
		if err != nil {
			return err
		}
		if count >= quiz.MaxAttempts {
			return domain.NewInvalidOperationError("maximum attempts reached").
				WithContext("max_attempts", quiz.MaxAttempts)
		}

		attempt = domain.NewQuizAttempt(quizID, userID, count+1)
		attempt.ID = util.NewULID()
		return s.attempts.CreateAttempt(txCtx, attempt)
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("attempt started",
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.Int("attempt_number", attempt.AttemptNumber))

	return &dto.StartAttemptResponse{
		AttemptID:        attempt.ID,
		QuizID:           quizID,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
	}, nil
}

// gradeAnswers grades the submission against the quiz's current question set.
// Unanswered questions score zero and produce no answer row; answers to
// unknown questions are ignored.
func gradeAnswers(attemptID string, questions []*domain.Question, submitted []dto.SubmittedAnswerRequest, now time.Time) (answers []*domain.UserAnswer, score, total int) {
	byQuestion := make(map[string]dto.SubmittedAnswerRequest, len(submitted))
	for _, sa := range submitted {
		byQuestion[sa.QuestionID] = sa
	}

	for _, q := range questions {
		total += q.Points

		sa, ok := byQuestion[q.ID]
		if !ok {
			continue
		}

		answer := &domain.UserAnswer{
			ID:         util.NewULID(),
			AttemptID:  attemptID,
			QuestionID: q.ID,
			AnsweredAt: now,
		}

		switch q.Type {
		case domain.QuestionTypeSingleChoice:
			answer.SelectedOptionID = sa.SelectedOptionID
			answer.IsCorrect = sa.SelectedOptionID != "" && sa.SelectedOptionID == q.CorrectOptionID()
		case domain.QuestionTypeTrueFalse:
			answer.BoolAnswer = sa.BoolAnswer
			answer.IsCorrect = sa.BoolAnswer != nil && *sa.BoolAnswer == q.CorrectBool
		}

		if answer.IsCorrect {
			answer.PointsEarned = q.Points
			score += q.Points
		}
		answers = append(answers, answer)
	}
	return answers, score, total
}

func (s *assessmentService) SubmitAttempt(ctx context.Context, attemptID, userID string, req *dto.SubmitAttemptRequest) (*dto.SubmitAttemptResponse, error) {
	attempt, err := s.attempts.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load attempt", err)
	}
	if attempt == nil {
		return nil, domain.NewNotFoundError("attempt not found")
	}
	if attempt.UserID != userID {
		return nil, domain.NewForbiddenError("attempt belongs to another user")
	}
	if attempt.Status != domain.AttemptInProgress {
		return nil, domain.NewInvalidOperationError("attempt is not in progress")
	}

	quiz, err := s.quizzes.GetQuizByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load quiz", err)
	}
	if quiz == nil {
		return nil, domain.NewNotFoundError("quiz not found")
	}

	now := time.Now()
	if attempt.DeadlineExceeded(quiz.TimeLimitMinutes, now) {
		// The expiry is persisted on its own so the rejection below cannot
		// roll it back.
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := attempt.Expire(now); err != nil {
				return err
			}
			return s.attempts.UpdateAttempt(txCtx, attempt)
		})
		if err != nil {
			return nil, domain.NewInternalError("failed to expire attempt", err)
		}
		return nil, domain.NewInvalidOperationError("attempt time limit exceeded")
	}

	questions, err := s.quizzes.GetQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load questions", err)
	}

	answers, score, total := gradeAnswers(attempt.ID, questions, req.Answers, now)

	// Grading, answers, the graded attempt and the point award commit as one
	// unit; a failure anywhere leaves the attempt in progress so a retry is
	// safe.
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := attempt.Grade(score, total, quiz.PassingScorePercent, now); err != nil {
			return err
		}
		if err := s.attempts.UpdateAttempt(txCtx, attempt); err != nil {
			return err
		}
		if err := s.attempts.SaveAnswers(txCtx, answers); err != nil {
			return err
		}
		return s.points.AwardQuizPoints(txCtx, attempt, quiz.CourseID)
	})
	if err != nil {
		// The in-memory transition is rolled back alongside the store.
		attempt.Status = domain.AttemptInProgress
		attempt.CompletedAt = nil
		return nil, err
	}

	resultEvent := domain.EventQuizFailed
	if attempt.Passed {
		resultEvent = domain.EventQuizPassed
	}
	s.publisher.Publish(ctx, domain.Event{
		Type:     resultEvent,
		UserID:   userID,
		CourseID: quiz.CourseID,
		Payload: map[string]interface{}{
			"quiz_id":    quiz.ID,
			"attempt_id": attempt.ID,
			"score":      score,
		},
	})
	s.publisher.Publish(ctx, domain.Event{
		Type:     domain.EventPointsChanged,
		UserID:   userID,
		CourseID: quiz.CourseID,
		Payload:  map[string]interface{}{"points_changed": score},
	})

	if err := s.ranking.UpdateRanks(ctx, quiz.CourseID); err != nil {
		// Rank recomputation is repairable on the next points change; the
		// graded attempt stands.
		logger.Get().Error("failed to update ranks after grading",
			zap.String("course_id", quiz.CourseID),
			zap.Error(err))
	}

	logger.Get().Info("attempt graded",
		zap.String("attempt_id", attempt.ID),
		zap.Int("score", score),
		zap.Int("total", total),
		zap.Bool("passed", attempt.Passed))

	return &dto.SubmitAttemptResponse{
		AttemptID:           attempt.ID,
		Status:              string(attempt.Status),
		Score:               score,
		TotalPossiblePoints: total,
		ScorePercent:        domain.ScorePercent(score, total),
		Passed:              attempt.Passed,
	}, nil
}

func (s *assessmentService) HasPassed(ctx context.Context, quizID, userID string) (bool, error) {
	return s.attempts.HasPassed(ctx, quizID, userID)
}

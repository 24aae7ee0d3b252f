package service

import (
	"context"
	"sync/atomic"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AttemptSweeper transitions stale in-progress attempts of time-limited
// quizzes to expired. The time limit is otherwise enforced lazily on
// submission, so the sweep only catches attempts nobody ever submits.
type AttemptSweeper struct {
	attempts    domain.AttemptRepository
	quizzes     domain.QuizRepository
	txManager   domain.TransactionManager
	concurrency int
}

// NewAttemptSweeper creates a new AttemptSweeper instance
func NewAttemptSweeper(attempts domain.AttemptRepository, quizzes domain.QuizRepository, txManager domain.TransactionManager, concurrency int) *AttemptSweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AttemptSweeper{
		attempts:    attempts,
		quizzes:     quizzes,
		txManager:   txManager,
		concurrency: concurrency,
	}
}

// Sweep expires every overdue attempt, each in its own transaction so one
// failure does not hold up the rest. It returns the number of attempts it
// actually expired.
func (s *AttemptSweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now()
	stale, err := s.attempts.ListExpirable(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var expired atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, attempt := range stale {
		g.Go(func() error {
			err := s.txManager.WithTransaction(gCtx, func(txCtx context.Context) error {
				// Re-read inside the transaction; the user may have submitted
				// between the listing and now.
				current, err := s.attempts.GetAttemptByID(txCtx, attempt.ID)
				if err != nil {
					return err
				}
				if current == nil || current.Status != domain.AttemptInProgress {
					return nil
				}
				quiz, err := s.quizzes.GetQuizByID(txCtx, current.QuizID)
				if err != nil {
					return err
				}
				if quiz == nil || !current.DeadlineExceeded(quiz.TimeLimitMinutes, now) {
					return nil
				}
				if err := current.Expire(now); err != nil {
					return err
				}
				if err := s.attempts.UpdateAttempt(txCtx, current); err != nil {
					return err
				}
				expired.Add(1)
				return nil
			})
			if err != nil {
				logger.Get().Error("failed to expire attempt",
					zap.String("attempt_id", attempt.ID),
					zap.Error(err))
			}
			// Keep sweeping the remaining attempts.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(expired.Load()), err
	}

	logger.Get().Info("attempt sweep finished",
		zap.Int("listed", len(stale)),
		zap.Int64("expired", expired.Load()))
	return int(expired.Load()), nil
}

package service

import (
	"context"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/logger"
	"learnhub/internal/util"

	"go.uber.org/zap"
)

// PointsService defines the ledger operations.
type PointsService interface {
	// RecordTransaction appends one ledger row and folds it into the
	// aggregate within a single transaction.
	RecordTransaction(ctx context.Context, userID, courseID string, pointsChanged int, source domain.PointSource, meta TransactionMeta) (*domain.PointTransaction, error)

	// AwardQuizPoints records the quiz award for a freshly graded attempt.
	// It is idempotent per attempt: a second call for the same attempt is a
	// no-op. Callers run it inside the grading transaction.
	AwardQuizPoints(ctx context.Context, attempt *domain.QuizAttempt, courseID string) error

	// AwardBonus adds points on behalf of an instructor or admin.
	AwardBonus(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error)

	// DeductPoints removes points on behalf of an instructor or admin. The
	// aggregate clamps at zero; the ledger row keeps the requested delta.
	DeductPoints(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error)

	// Recalculate rebuilds the aggregate by replaying the pair's ledger.
	Recalculate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error)

	// GetCoursePoints returns the aggregate for a pair.
	GetCoursePoints(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error)
}

// TransactionMeta carries the optional fields of a ledger row.
type TransactionMeta struct {
	Description   string
	QuizAttemptID string
	AwardedBy     string
}

type pointsService struct {
	repo      domain.PointsRepository
	txManager domain.TransactionManager
	publisher domain.EventPublisher
}

// NewPointsService creates a new instance of pointsService
func NewPointsService(repo domain.PointsRepository, txManager domain.TransactionManager, publisher domain.EventPublisher) PointsService {
	return &pointsService{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
	}
}

// lockAggregate fetches the pair's aggregate under a row lock, creating the
// row first when the pair has no points yet. The lock serializes every
// concurrent writer for the pair, which is what gives the ledger its total
// order.
func (s *pointsService) lockAggregate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	cp, err := s.repo.GetCoursePointsForUpdate(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		return cp, nil
	}

	if err := s.repo.CreateCoursePoints(ctx, domain.NewCoursePoints(userID, courseID)); err != nil {
		// Another writer inserted the row first; fall through to lock it.
		if !domain.IsCode(err, domain.CodeConflict) {
			return nil, err
		}
	}
	return s.repo.GetCoursePointsForUpdate(ctx, userID, courseID)
}

func (s *pointsService) RecordTransaction(ctx context.Context, userID, courseID string, pointsChanged int, source domain.PointSource, meta TransactionMeta) (*domain.PointTransaction, error) {
	var recorded *domain.PointTransaction

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		cp, err := s.lockAggregate(txCtx, userID, courseID)
		if err != nil {
			return err
		}

		now := time.Now()
		balance := cp.Apply(pointsChanged, source, now)

		tx := &domain.PointTransaction{
			ID:              util.NewULID(),
			UserID:          userID,
			CourseID:        courseID,
			PointsChanged:   pointsChanged,
			PointsAfter:     balance,
			Source:          source,
			Description:     meta.Description,
			QuizAttemptID:   meta.QuizAttemptID,
			AwardedByUserID: meta.AwardedBy,
			CreatedAt:       now,
		}
		if err := tx.Validate(); err != nil {
			return err
		}

		if err := s.repo.InsertTransaction(txCtx, tx); err != nil {
			return err
		}
		if err := s.repo.UpdateCoursePoints(txCtx, cp); err != nil {
			return err
		}

		recorded = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

func (s *pointsService) AwardQuizPoints(ctx context.Context, attempt *domain.QuizAttempt, courseID string) error {
	if attempt.Status != domain.AttemptGraded {
		return domain.NewInvalidOperationError("only graded attempts award points")
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		awarded, err := s.repo.HasQuizAward(txCtx, attempt.ID)
		if err != nil {
			return err
		}
		if awarded {
			logger.Get().Debug("quiz award already recorded",
				zap.String("attempt_id", attempt.ID))
			return nil
		}

		_, err = s.RecordTransaction(txCtx, attempt.UserID, courseID, attempt.Score, domain.PointSourceQuiz, TransactionMeta{
			QuizAttemptID: attempt.ID,
		})
		// The unique index on quiz_attempt_id backstops the existence check
		// under concurrency; a conflict means the award already happened.
		if domain.IsCode(err, domain.CodeConflict) {
			return nil
		}
		return err
	})
}

func (s *pointsService) AwardBonus(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error) {
	if amount <= 0 {
		return nil, domain.NewInvalidOperationError("bonus amount must be positive")
	}

	tx, err := s.RecordTransaction(ctx, userID, courseID, amount, domain.PointSourceBonus, TransactionMeta{
		Description: description,
		AwardedBy:   awardedBy,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, domain.Event{
		Type:     domain.EventPointsChanged,
		UserID:   userID,
		CourseID: courseID,
		Payload:  map[string]interface{}{"points_changed": amount, "points_after": tx.PointsAfter},
	})
	return tx, nil
}

func (s *pointsService) DeductPoints(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error) {
	if amount <= 0 {
		return nil, domain.NewInvalidOperationError("deduction amount must be positive")
	}

	tx, err := s.RecordTransaction(ctx, userID, courseID, -amount, domain.PointSourcePenalty, TransactionMeta{
		Description: description,
		AwardedBy:   awardedBy,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, domain.Event{
		Type:     domain.EventPointsChanged,
		UserID:   userID,
		CourseID: courseID,
		Payload:  map[string]interface{}{"points_changed": -amount, "points_after": tx.PointsAfter},
	})
	return tx, nil
}

// Recalculate replays the pair's ledger against a fresh aggregate. Under
// correct operation the result matches the incrementally maintained row; any
// drift is repaired in place. Safe to run repeatedly.
func (s *pointsService) Recalculate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	var result *domain.CoursePoints

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		cp, err := s.lockAggregate(txCtx, userID, courseID)
		if err != nil {
			return err
		}

		txs, err := s.repo.ListTransactions(txCtx, userID, courseID)
		if err != nil {
			return err
		}

		rebuilt := domain.NewCoursePoints(userID, courseID)
		rebuilt.CurrentRank = cp.CurrentRank
		rebuilt.LastUpdated = cp.LastUpdated
		for _, tx := range txs {
			// Replaying with the row's own timestamp keeps LastUpdated, and
			// with it the rank tie-break, stable across repairs.
			rebuilt.Apply(tx.PointsChanged, tx.Source, tx.CreatedAt)
		}

		if rebuilt.TotalPoints != cp.TotalPoints {
			logger.Get().Warn("course points drift repaired",
				zap.String("user_id", userID),
				zap.String("course_id", courseID),
				zap.Int("stored", cp.TotalPoints),
				zap.Int("replayed", rebuilt.TotalPoints))
		}

		if err := s.repo.UpdateCoursePoints(txCtx, rebuilt); err != nil {
			return err
		}
		result = rebuilt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pointsService) GetCoursePoints(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	cp, err := s.repo.GetCoursePoints(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return domain.NewCoursePoints(userID, courseID), nil
	}
	return cp, nil
}

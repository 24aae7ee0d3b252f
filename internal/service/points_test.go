package service

import (
	"context"
	"os"
	"testing"

	"learnhub/internal/config"
	"learnhub/internal/domain"
	"learnhub/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestMain initializes the logger for all tests in this package
func TestMain(m *testing.M) {
	if err := logger.Initialize(config.LoggerConfig{Level: "info"}); err != nil {
		panic("Failed to initialize logger for tests: " + err.Error())
	}
	exitVal := m.Run()
	_ = logger.Sync()
	os.Exit(exitVal)
}

func newPointsFixture() (*MockPointsRepository, *recordingPublisher, PointsService) {
	repo := new(MockPointsRepository)
	publisher := &recordingPublisher{}
	svc := NewPointsService(repo, stubTxManager{}, publisher)
	return repo, publisher, svc
}

func TestRecordTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("creates aggregate on first transaction", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		fresh := domain.NewCoursePoints("user1", "course1")
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(nil, nil).Once()
		repo.On("CreateCoursePoints", ctx, mock.AnythingOfType("*domain.CoursePoints")).Return(nil).Once()
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(fresh, nil).Once()
		repo.On("InsertTransaction", ctx, mock.AnythingOfType("*domain.PointTransaction")).Return(nil)
		repo.On("UpdateCoursePoints", ctx, fresh).Return(nil)

		tx, err := svc.RecordTransaction(ctx, "user1", "course1", 10, domain.PointSourceQuiz, TransactionMeta{QuizAttemptID: "attempt1"})
		require.NoError(t, err)
		assert.Equal(t, 10, tx.PointsChanged)
		assert.Equal(t, 10, tx.PointsAfter)
		assert.Equal(t, 10, fresh.TotalPoints)
		repo.AssertExpectations(t)
	})

	t.Run("deduction clamps aggregate but keeps the requested delta", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		cp := domain.NewCoursePoints("user1", "course1")
		cp.TotalPoints = 30
		cp.BonusPoints = 30
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil)
		repo.On("InsertTransaction", ctx, mock.AnythingOfType("*domain.PointTransaction")).Return(nil)
		repo.On("UpdateCoursePoints", ctx, cp).Return(nil)

		tx, err := svc.RecordTransaction(ctx, "user1", "course1", -50, domain.PointSourcePenalty, TransactionMeta{AwardedBy: "admin1"})
		require.NoError(t, err)
		assert.Equal(t, -50, tx.PointsChanged, "ledger keeps the full requested delta")
		assert.Equal(t, 0, tx.PointsAfter, "running balance clamps at zero")
		assert.Equal(t, 0, cp.TotalPoints)
		assert.Equal(t, 50, cp.PenaltyPoints)
	})

	t.Run("writers serialize on the locked aggregate", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		// Both writers read the same row under the lock, so the second sees
		// the first's balance and the ledger stays totally ordered.
		cp := domain.NewCoursePoints("user1", "course1")
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil).Twice()
		repo.On("InsertTransaction", ctx, mock.AnythingOfType("*domain.PointTransaction")).Return(nil)
		repo.On("UpdateCoursePoints", ctx, cp).Return(nil)

		first, err := svc.RecordTransaction(ctx, "user1", "course1", 1, domain.PointSourceBonus, TransactionMeta{AwardedBy: "admin1"})
		require.NoError(t, err)
		second, err := svc.RecordTransaction(ctx, "user1", "course1", 1, domain.PointSourceBonus, TransactionMeta{AwardedBy: "admin1"})
		require.NoError(t, err)

		assert.Equal(t, 1, first.PointsAfter)
		assert.Equal(t, 2, second.PointsAfter)
		assert.Equal(t, 2, cp.TotalPoints)
		repo.AssertExpectations(t)
	})

	t.Run("invalid transaction rolls back", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		cp := domain.NewCoursePoints("user1", "course1")
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil)

		// quiz source without an attempt reference fails validation
		_, err := svc.RecordTransaction(ctx, "user1", "course1", 10, domain.PointSourceQuiz, TransactionMeta{})
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeValidation))
		repo.AssertNotCalled(t, "InsertTransaction", mock.Anything, mock.Anything)
	})
}

func TestAwardQuizPoints(t *testing.T) {
	ctx := context.Background()

	gradedAttempt := func() *domain.QuizAttempt {
		a := domain.NewQuizAttempt("quiz1", "user1", 1)
		a.ID = "attempt1"
		a.Status = domain.AttemptGraded
		a.Score = 10
		return a
	}

	t.Run("awards score once", func(t *testing.T) {
		repo, _, svc := newPointsFixture()
		attempt := gradedAttempt()

		cp := domain.NewCoursePoints("user1", "course1")
		repo.On("HasQuizAward", ctx, "attempt1").Return(false, nil)
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil)
		repo.On("InsertTransaction", ctx, mock.MatchedBy(func(tx *domain.PointTransaction) bool {
			return tx.QuizAttemptID == "attempt1" && tx.PointsChanged == 10 && tx.Source == domain.PointSourceQuiz
		})).Return(nil)
		repo.On("UpdateCoursePoints", ctx, cp).Return(nil)

		require.NoError(t, svc.AwardQuizPoints(ctx, attempt, "course1"))
		assert.Equal(t, 10, cp.QuizPoints)
		repo.AssertExpectations(t)
	})

	t.Run("second award is a no-op", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		repo.On("HasQuizAward", ctx, "attempt1").Return(true, nil)

		require.NoError(t, svc.AwardQuizPoints(ctx, gradedAttempt(), "course1"))
		repo.AssertNotCalled(t, "InsertTransaction", mock.Anything, mock.Anything)
	})

	t.Run("concurrent award conflict is swallowed", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		cp := domain.NewCoursePoints("user1", "course1")
		repo.On("HasQuizAward", ctx, "attempt1").Return(false, nil)
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil)
		repo.On("InsertTransaction", ctx, mock.Anything).Return(domain.NewConflictError("attempt already awarded", nil))

		assert.NoError(t, svc.AwardQuizPoints(ctx, gradedAttempt(), "course1"))
	})

	t.Run("ungraded attempt is rejected", func(t *testing.T) {
		_, _, svc := newPointsFixture()

		attempt := domain.NewQuizAttempt("quiz1", "user1", 1)
		err := svc.AwardQuizPoints(ctx, attempt, "course1")
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeInvalidOperation))
	})
}

func TestAwardBonusAndDeduct(t *testing.T) {
	ctx := context.Background()

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		_, _, svc := newPointsFixture()

		_, err := svc.AwardBonus(ctx, "user1", "course1", 0, "admin1", "")
		assert.True(t, domain.IsCode(err, domain.CodeInvalidOperation))

		_, err = svc.DeductPoints(ctx, "user1", "course1", -5, "admin1", "")
		assert.True(t, domain.IsCode(err, domain.CodeInvalidOperation))
	})

	t.Run("bonus publishes points changed", func(t *testing.T) {
		repo, publisher, svc := newPointsFixture()

		cp := domain.NewCoursePoints("user1", "course1")
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(cp, nil)
		repo.On("InsertTransaction", ctx, mock.Anything).Return(nil)
		repo.On("UpdateCoursePoints", ctx, cp).Return(nil)

		tx, err := svc.AwardBonus(ctx, "user1", "course1", 25, "instructor1", "great work")
		require.NoError(t, err)
		assert.Equal(t, 25, tx.PointsAfter)
		assert.Equal(t, domain.PointSourceBonus, tx.Source)

		events := publisher.byType(domain.EventPointsChanged)
		require.Len(t, events, 1)
		assert.Equal(t, "user1", events[0].UserID)
	})
}

func TestRecalculate(t *testing.T) {
	ctx := context.Background()

	t.Run("replays the ledger with clamping", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		stored := domain.NewCoursePoints("user1", "course1")
		stored.TotalPoints = 99 // drifted
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(stored, nil)
		repo.On("ListTransactions", ctx, "user1", "course1").Return([]*domain.PointTransaction{
			{PointsChanged: 10, Source: domain.PointSourceQuiz},
			{PointsChanged: -50, Source: domain.PointSourcePenalty},
			{PointsChanged: 7, Source: domain.PointSourceBonus},
		}, nil)
		repo.On("UpdateCoursePoints", ctx, mock.MatchedBy(func(cp *domain.CoursePoints) bool {
			return cp.TotalPoints == 7 && cp.QuizPoints == 10 && cp.PenaltyPoints == 50 && cp.BonusPoints == 7
		})).Return(nil)

		rebuilt, err := svc.Recalculate(ctx, "user1", "course1")
		require.NoError(t, err)
		assert.Equal(t, 7, rebuilt.TotalPoints)
		repo.AssertExpectations(t)
	})

	t.Run("empty ledger rebuilds to zero", func(t *testing.T) {
		repo, _, svc := newPointsFixture()

		stored := domain.NewCoursePoints("user1", "course1")
		repo.On("GetCoursePointsForUpdate", ctx, "user1", "course1").Return(stored, nil)
		repo.On("ListTransactions", ctx, "user1", "course1").Return([]*domain.PointTransaction{}, nil)
		repo.On("UpdateCoursePoints", ctx, mock.Anything).Return(nil)

		rebuilt, err := svc.Recalculate(ctx, "user1", "course1")
		require.NoError(t, err)
		assert.Equal(t, 0, rebuilt.TotalPoints)
	})
}

func TestGetCoursePoints(t *testing.T) {
	ctx := context.Background()

	t.Run("missing aggregate reads as zero", func(t *testing.T) {
		repo, _, svc := newPointsFixture()
		repo.On("GetCoursePoints", ctx, "user1", "course1").Return(nil, nil)

		cp, err := svc.GetCoursePoints(ctx, "user1", "course1")
		require.NoError(t, err)
		assert.Equal(t, 0, cp.TotalPoints)
		assert.Equal(t, "user1", cp.UserID)
	})
}

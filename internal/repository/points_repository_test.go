package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/repository/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgUniqueViolation mimics the driver error for a violated unique constraint.
var pgUniqueViolation = pgconn.PgError{Code: "23505"}

// setupTestDB creates a new sqlx.DB instance and sqlmock for repository testing.
func setupTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return sqlxDB, mock
}

func coursePointsColumns() []string {
	return []string{"user_id", "course_id", "total_points", "quiz_points", "bonus_points", "penalty_points", "current_rank", "last_updated"}
}

func TestToDomainCoursePoints(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	m := &models.CoursePoints{
		UserID:        "user1",
		CourseID:      "course1",
		TotalPoints:   42,
		QuizPoints:    30,
		BonusPoints:   15,
		PenaltyPoints: 3,
		CurrentRank:   sql.NullInt64{Int64: 2, Valid: true},
		LastUpdated:   now,
	}

	cp := toDomainCoursePoints(m)
	require.NotNil(t, cp)
	assert.Equal(t, 42, cp.TotalPoints)
	assert.Equal(t, 2, cp.CurrentRank)
	assert.True(t, now.Equal(cp.LastUpdated))

	m.CurrentRank = sql.NullInt64{}
	assert.Equal(t, 0, toDomainCoursePoints(m).CurrentRank, "null rank reads as unranked")

	assert.Nil(t, toDomainCoursePoints(nil))
}

func TestGetCoursePoints(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		rows := sqlmock.NewRows(coursePointsColumns()).
			AddRow("user1", "course1", 42, 30, 15, 3, 2, time.Now())
		mock.ExpectQuery(`SELECT \* FROM course_points WHERE user_id = \$1 AND course_id = \$2`).
			WithArgs("user1", "course1").
			WillReturnRows(rows)

		cp, err := repo.GetCoursePoints(ctx, "user1", "course1")
		require.NoError(t, err)
		require.NotNil(t, cp)
		assert.Equal(t, 42, cp.TotalPoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row reads as nil", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		mock.ExpectQuery(`SELECT \* FROM course_points`).
			WithArgs("user1", "course1").
			WillReturnError(sql.ErrNoRows)

		cp, err := repo.GetCoursePoints(ctx, "user1", "course1")
		require.NoError(t, err)
		assert.Nil(t, cp)
	})

	t.Run("for update appends the lock clause", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		rows := sqlmock.NewRows(coursePointsColumns()).
			AddRow("user1", "course1", 10, 10, 0, 0, nil, time.Now())
		mock.ExpectQuery(`SELECT \* FROM course_points WHERE user_id = \$1 AND course_id = \$2 FOR UPDATE`).
			WithArgs("user1", "course1").
			WillReturnRows(rows)

		cp, err := repo.GetCoursePointsForUpdate(ctx, "user1", "course1")
		require.NoError(t, err)
		require.NotNil(t, cp)
		assert.Equal(t, 0, cp.CurrentRank)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertTransaction(t *testing.T) {
	ctx := context.Background()

	baseTx := func() *domain.PointTransaction {
		return &domain.PointTransaction{
			ID:            "tx1",
			UserID:        "user1",
			CourseID:      "course1",
			PointsChanged: 10,
			PointsAfter:   10,
			Source:        domain.PointSourceQuiz,
			QuizAttemptID: "attempt1",
			CreatedAt:     time.Now(),
		}
	}

	t.Run("inserts the ledger row", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		mock.ExpectExec(`INSERT INTO point_transactions`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.InsertTransaction(ctx, baseTx()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate attempt surfaces as conflict", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		mock.ExpectExec(`INSERT INTO point_transactions`).
			WillReturnError(&pgUniqueViolation)

		err := repo.InsertTransaction(ctx, baseTx())
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
	})
}

func TestListCourseAggregates(t *testing.T) {
	ctx := context.Background()
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPointsRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(coursePointsColumns()).
		AddRow("user1", "course1", 100, 100, 0, 0, 1, now).
		AddRow("user2", "course1", 80, 80, 0, 0, 2, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM course_points`)).
		WithArgs("course1").
		WillReturnRows(rows)

	aggs, err := repo.ListCourseAggregates(ctx, "course1")
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, "user1", aggs[0].UserID)
	assert.Equal(t, 2, aggs[1].CurrentRank)
}

func TestUpdateCoursePoints(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row is not found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		defer db.Close()
		repo := NewSQLXPointsRepository(db)

		mock.ExpectExec(`UPDATE course_points SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateCoursePoints(ctx, domain.NewCoursePoints("user1", "course1"))
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
	})
}

func TestHasQuizAward(t *testing.T) {
	ctx := context.Background()
	db, mock := setupTestDB(t)
	defer db.Close()
	repo := NewSQLXPointsRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("attempt1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	awarded, err := repo.HasQuizAward(ctx, "attempt1")
	require.NoError(t, err)
	assert.True(t, awarded)
}

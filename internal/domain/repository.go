package domain

import (
	"context"
	"time"
)

// TransactionManager runs a function inside a single storage transaction.
// Repository calls made with the context it hands to fn join that transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HierarchyRepository is the read-only view of the course tree.
type HierarchyRepository interface {
	// GetNode retrieves a node by id, including deleted and invisible rows.
	GetNode(ctx context.Context, id string) (*HierarchyNode, error)

	// GetChildren returns all children of a parent within a course, including
	// deleted and invisible rows; callers filter with Reachable. Levels are
	// fetched with an empty parentID.
	GetChildren(ctx context.Context, courseID, parentID string, kind NodeKind) ([]*HierarchyNode, error)
}

// ProgressRepository persists cursors, completion records and content sessions.
type ProgressRepository interface {
	// GetCursor returns the cursor for a pair, or nil when none exists.
	GetCursor(ctx context.Context, userID, courseID string) (*ProgressCursor, error)

	// SaveCursor inserts or updates the cursor for its (user, course) pair.
	SaveCursor(ctx context.Context, cursor *ProgressCursor) error

	// GetCompletion returns the completion record for a (user, node) pair, or
	// nil when the node was never completed by the user.
	GetCompletion(ctx context.Context, userID, nodeID string) (*NodeCompletion, error)

	// CreateCompletion inserts a completion record. Inserting a duplicate
	// (user, node) pair surfaces as a Conflict error.
	CreateCompletion(ctx context.Context, completion *NodeCompletion) error

	// GetOpenSession returns the most recent open content session for a
	// (user, content) pair, or nil.
	GetOpenSession(ctx context.Context, userID, contentID string) (*ContentSession, error)

	// CreateSession inserts a new open content session.
	CreateSession(ctx context.Context, session *ContentSession) error

	// CloseSession stamps EndedAt on an open session.
	CloseSession(ctx context.Context, sessionID string, endedAt time.Time) error
}

// QuizRepository is the read-only quiz/question catalog.
type QuizRepository interface {
	// GetQuizByID retrieves a quiz by its ID, or nil when absent.
	GetQuizByID(ctx context.Context, id string) (*Quiz, error)

	// GetQuestions returns a quiz's questions with their options, ordered.
	GetQuestions(ctx context.Context, quizID string) ([]*Question, error)

	// GetQuizzesByScopeNode returns the active quizzes attached to a
	// hierarchy node (content quiz, section exam or level exam).
	GetQuizzesByScopeNode(ctx context.Context, nodeID string) ([]*Quiz, error)
}

// AttemptRepository persists quiz attempts and their graded answers.
type AttemptRepository interface {
	// GetAttemptByID retrieves an attempt, or nil when absent.
	GetAttemptByID(ctx context.Context, id string) (*QuizAttempt, error)

	// GetInProgress returns the single in-progress attempt for a
	// (quiz, user) pair, or nil.
	GetInProgress(ctx context.Context, quizID, userID string) (*QuizAttempt, error)

	// CountAttempts returns how many attempts exist for a (quiz, user) pair,
	// regardless of status. Callers must hold the pair's serialization lock
	// when using the count to allocate the next attempt number.
	CountAttempts(ctx context.Context, quizID, userID string) (int, error)

	// CreateAttempt inserts a new attempt. A duplicate attempt number for the
	// (quiz, user) pair surfaces as a Conflict error.
	CreateAttempt(ctx context.Context, attempt *QuizAttempt) error

	// UpdateAttempt persists status, score and completion fields.
	UpdateAttempt(ctx context.Context, attempt *QuizAttempt) error

	// SaveAnswers inserts the graded answers of one attempt.
	SaveAnswers(ctx context.Context, answers []*UserAnswer) error

	// HasPassed reports whether any graded attempt for the pair passed.
	HasPassed(ctx context.Context, quizID, userID string) (bool, error)

	// ListExpirable returns in-progress attempts of time-limited quizzes
	// whose deadline lies before now.
	ListExpirable(ctx context.Context, now time.Time) ([]*QuizAttempt, error)
}

// PointsRepository persists the ledger and the CoursePoints aggregate.
type PointsRepository interface {
	// GetCoursePoints returns the aggregate for a pair, or nil when absent.
	GetCoursePoints(ctx context.Context, userID, courseID string) (*CoursePoints, error)

	// GetCoursePointsForUpdate is GetCoursePoints under a row-level lock.
	// It serializes concurrent writers for the same pair and must run inside
	// a transaction.
	GetCoursePointsForUpdate(ctx context.Context, userID, courseID string) (*CoursePoints, error)

	// CreateCoursePoints inserts a fresh aggregate row.
	CreateCoursePoints(ctx context.Context, cp *CoursePoints) error

	// UpdateCoursePoints persists the aggregate's buckets and totals.
	UpdateCoursePoints(ctx context.Context, cp *CoursePoints) error

	// InsertTransaction appends a ledger row. A duplicate quiz attempt id
	// surfaces as a Conflict error, which is how quiz awards stay
	// exactly-once.
	InsertTransaction(ctx context.Context, tx *PointTransaction) error

	// ListTransactions returns all ledger rows for a pair in insertion order.
	ListTransactions(ctx context.Context, userID, courseID string) ([]*PointTransaction, error)

	// HasQuizAward reports whether a ledger row exists for the attempt.
	HasQuizAward(ctx context.Context, quizAttemptID string) (bool, error)

	// ListCourseAggregates returns every aggregate of a course ordered by
	// total points descending, earliest LastUpdated first on ties.
	ListCourseAggregates(ctx context.Context, courseID string) ([]*CoursePoints, error)

	// UpdateRank persists the computed rank on one aggregate row.
	UpdateRank(ctx context.Context, userID, courseID string, rank int) error
}

package models

import (
	"database/sql"
	"time"
)

// HierarchyNode is the DB row for levels, sections and content items.
type HierarchyNode struct {
	ID               string         `db:"id"`
	CourseID         string         `db:"course_id"`
	ParentID         sql.NullString `db:"parent_id"`
	Kind             string         `db:"kind"`
	Title            string         `db:"title"`
	OrderKey         int            `db:"order_key"`
	IsVisible        bool           `db:"is_visible"`
	IsDeleted        bool           `db:"is_deleted"`
	RequiresPrevious bool           `db:"requires_previous"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// ProgressCursor is the DB row for a user's position in a course.
type ProgressCursor struct {
	UserID           string         `db:"user_id"`
	CourseID         string         `db:"course_id"`
	CurrentLevelID   sql.NullString `db:"current_level_id"`
	CurrentSectionID sql.NullString `db:"current_section_id"`
	CurrentContentID sql.NullString `db:"current_content_id"`
	LastAccessed     time.Time      `db:"last_accessed"`
	CompletedAt      sql.NullTime   `db:"completed_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// NodeCompletion is the DB row recording one completed hierarchy node.
type NodeCompletion struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	NodeID      string    `db:"node_id"`
	CourseID    string    `db:"course_id"`
	CompletedAt time.Time `db:"completed_at"`
}

// ContentSession is the DB row for one content visit.
type ContentSession struct {
	ID        string       `db:"id"`
	UserID    string       `db:"user_id"`
	ContentID string       `db:"content_id"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}

// Quiz is the DB row for a quiz or exam. The three scope columns are
// nullable; which one is set follows from kind and is re-checked when mapping
// to the domain's tagged scope.
type Quiz struct {
	ID                  string         `db:"id"`
	CourseID            string         `db:"course_id"`
	Kind                string         `db:"kind"`
	ContentID           sql.NullString `db:"content_id"`
	SectionID           sql.NullString `db:"section_id"`
	LevelID             sql.NullString `db:"level_id"`
	Title               string         `db:"title"`
	MaxAttempts         int            `db:"max_attempts"`
	PassingScorePercent float64        `db:"passing_score_percent"`
	TimeLimitMinutes    sql.NullInt64  `db:"time_limit_minutes"`
	IsActive            bool           `db:"is_active"`
	IsDeleted           bool           `db:"is_deleted"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// Question is the DB row for one quiz question.
type Question struct {
	ID          string       `db:"id"`
	QuizID      string       `db:"quiz_id"`
	Type        string       `db:"type"`
	Text        string       `db:"text"`
	Points      int          `db:"points"`
	OrderKey    int          `db:"order_key"`
	CorrectBool sql.NullBool `db:"correct_bool"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// QuestionOption is the DB row for one selectable option.
type QuestionOption struct {
	ID         string `db:"id"`
	QuestionID string `db:"question_id"`
	Text       string `db:"text"`
	OrderKey   int    `db:"order_key"`
	IsCorrect  bool   `db:"is_correct"`
}

// QuizAttempt is the DB row for one attempt.
type QuizAttempt struct {
	ID                  string       `db:"id"`
	QuizID              string       `db:"quiz_id"`
	UserID              string       `db:"user_id"`
	AttemptNumber       int          `db:"attempt_number"`
	Status              string       `db:"status"`
	StartedAt           time.Time    `db:"started_at"`
	CompletedAt         sql.NullTime `db:"completed_at"`
	Score               int          `db:"score"`
	TotalPossiblePoints int          `db:"total_possible_points"`
	Passed              bool         `db:"passed"`
}

// UserAnswer is the DB row for one graded answer.
type UserAnswer struct {
	ID               string         `db:"id"`
	AttemptID        string         `db:"attempt_id"`
	QuestionID       string         `db:"question_id"`
	SelectedOptionID sql.NullString `db:"selected_option_id"`
	BoolAnswer       sql.NullBool   `db:"bool_answer"`
	IsCorrect        bool           `db:"is_correct"`
	PointsEarned     int            `db:"points_earned"`
	AnsweredAt       time.Time      `db:"answered_at"`
}

// CoursePoints is the DB row for the per (user, course) aggregate.
type CoursePoints struct {
	UserID        string        `db:"user_id"`
	CourseID      string        `db:"course_id"`
	TotalPoints   int           `db:"total_points"`
	QuizPoints    int           `db:"quiz_points"`
	BonusPoints   int           `db:"bonus_points"`
	PenaltyPoints int           `db:"penalty_points"`
	CurrentRank   sql.NullInt64 `db:"current_rank"`
	LastUpdated   time.Time     `db:"last_updated"`
}

// PointTransaction is the DB row for one ledger entry.
type PointTransaction struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	CourseID        string         `db:"course_id"`
	PointsChanged   int            `db:"points_changed"`
	PointsAfter     int            `db:"points_after"`
	Source          string         `db:"source"`
	Description     sql.NullString `db:"description"`
	QuizAttemptID   sql.NullString `db:"quiz_attempt_id"`
	AwardedByUserID sql.NullString `db:"awarded_by_user_id"`
	CreatedAt       time.Time      `db:"created_at"`
}

package domain

import "time"

// PointSource tags why a ledger row exists.
type PointSource string

const (
	PointSourceQuiz        PointSource = "quiz"
	PointSourceBonus       PointSource = "bonus"
	PointSourcePenalty     PointSource = "penalty"
	PointSourceManualAward PointSource = "manual_award"
)

// PointTransaction is one append-only ledger row for a (user, course) pair.
// PointsChanged keeps the requested signed delta for audit even when the
// aggregate clamps; PointsAfter records the clamped running balance at
// insertion time, so replaying the ledger reproduces the aggregate exactly.
type PointTransaction struct {
	ID              string
	UserID          string
	CourseID        string
	PointsChanged   int
	PointsAfter     int
	Source          PointSource
	Description     string
	QuizAttemptID   string // set only for Source == quiz, unique in the ledger
	AwardedByUserID string // set for manual awards and penalties
	CreatedAt       time.Time
}

// Validate validates the transaction
func (t *PointTransaction) Validate() error {
	if t.UserID == "" || t.CourseID == "" {
		return NewError(CodeValidation, "user ID and course ID are required", nil)
	}
	switch t.Source {
	case PointSourceQuiz:
		if t.QuizAttemptID == "" {
			return NewError(CodeValidation, "quiz transactions must reference an attempt", nil)
		}
	case PointSourceBonus, PointSourcePenalty, PointSourceManualAward:
		if t.AwardedByUserID == "" {
			return NewError(CodeValidation, "manual transactions must record the awarding user", nil)
		}
	default:
		return NewError(CodeValidation, "unknown point source", nil)
	}
	return nil
}

// CoursePoints is the denormalized running-total snapshot for a (user, course)
// pair. It must always equal the clamped replay of the pair's ledger.
type CoursePoints struct {
	UserID        string
	CourseID      string
	TotalPoints   int
	QuizPoints    int
	BonusPoints   int
	PenaltyPoints int
	CurrentRank   int // 0 means unranked
	LastUpdated   time.Time
}

// NewCoursePoints creates an empty aggregate for a pair
func NewCoursePoints(userID, courseID string) *CoursePoints {
	return &CoursePoints{
		UserID:      userID,
		CourseID:    courseID,
		LastUpdated: time.Now(),
	}
}

// Apply folds one signed delta into the aggregate, clamping the total at zero.
// It returns the clamped balance after the change, which the caller records on
// the ledger row.
func (cp *CoursePoints) Apply(pointsChanged int, source PointSource, now time.Time) int {
	switch source {
	case PointSourceQuiz:
		cp.QuizPoints += pointsChanged
	case PointSourcePenalty:
		cp.PenaltyPoints += -pointsChanged
	default:
		cp.BonusPoints += pointsChanged
	}
	cp.TotalPoints += pointsChanged
	if cp.TotalPoints < 0 {
		cp.TotalPoints = 0
	}
	cp.LastUpdated = now
	return cp.TotalPoints
}

// LeaderboardEntry is one row of a course leaderboard.
type LeaderboardEntry struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

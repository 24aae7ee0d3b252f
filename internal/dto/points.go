package dto

import "time"

// AwardPointsRequest is the payload for bonuses and deductions.
type AwardPointsRequest struct {
	UserID      string `json:"user_id"`
	CourseID    string `json:"course_id"`
	Amount      int    `json:"amount"`
	Description string `json:"description,omitempty"`
}

// PointTransactionResponse is one ledger row.
type PointTransactionResponse struct {
	ID            string    `json:"id"`
	PointsChanged int       `json:"points_changed"`
	PointsAfter   int       `json:"points_after"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// CoursePointsResponse is the aggregate snapshot for a pair.
type CoursePointsResponse struct {
	UserID        string    `json:"user_id"`
	CourseID      string    `json:"course_id"`
	TotalPoints   int       `json:"total_points"`
	QuizPoints    int       `json:"quiz_points"`
	BonusPoints   int       `json:"bonus_points"`
	PenaltyPoints int       `json:"penalty_points"`
	CurrentRank   int       `json:"current_rank,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

// LeaderboardEntryResponse is one leaderboard row.
type LeaderboardEntryResponse struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

// LeaderboardResponse is the top-N window plus the caller's own row, which is
// present even when the caller ranks outside the window.
type LeaderboardResponse struct {
	CourseID string                     `json:"course_id"`
	Entries  []LeaderboardEntryResponse `json:"entries"`
	Me       *LeaderboardEntryResponse  `json:"me,omitempty"`
}

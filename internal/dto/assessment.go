package dto

import "time"

// StartAttemptResponse describes a freshly started attempt.
type StartAttemptResponse struct {
	AttemptID        string    `json:"attempt_id"`
	QuizID           string    `json:"quiz_id"`
	AttemptNumber    int       `json:"attempt_number"`
	StartedAt        time.Time `json:"started_at"`
	TimeLimitMinutes int       `json:"time_limit_minutes,omitempty"`
}

// SubmittedAnswerRequest is one answer in a submission payload.
type SubmittedAnswerRequest struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"`
	BoolAnswer       *bool  `json:"bool_answer,omitempty"`
}

// SubmitAttemptRequest is the submission payload for one attempt.
type SubmitAttemptRequest struct {
	Answers []SubmittedAnswerRequest `json:"answers"`
}

// SubmitAttemptResponse is the graded result of a submission.
type SubmitAttemptResponse struct {
	AttemptID           string  `json:"attempt_id"`
	Status              string  `json:"status"`
	Score               int     `json:"score"`
	TotalPossiblePoints int     `json:"total_possible_points"`
	ScorePercent        float64 `json:"score_percent"`
	Passed              bool    `json:"passed"`
}

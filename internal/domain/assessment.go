package domain

import (
	"time"
)

// QuizKind identifies the hierarchy tier a quiz is attached to.
type QuizKind string

const (
	QuizKindContent QuizKind = "content_quiz"
	QuizKindSection QuizKind = "section_exam"
	QuizKindLevel   QuizKind = "level_exam"
	QuizKindCourse  QuizKind = "course_exam"
)

// QuizScope is the tagged variant for a quiz's attachment point. Exactly one
// of the ID fields is set according to Kind; a course exam carries none. Using
// a variant instead of three nullable columns makes an invalid combination
// unrepresentable above the repository layer.
type QuizScope struct {
	Kind      QuizKind
	ContentID string
	SectionID string
	LevelID   string
}

func ContentScope(contentID string) QuizScope {
	return QuizScope{Kind: QuizKindContent, ContentID: contentID}
}

func SectionScope(sectionID string) QuizScope {
	return QuizScope{Kind: QuizKindSection, SectionID: sectionID}
}

func LevelScope(levelID string) QuizScope {
	return QuizScope{Kind: QuizKindLevel, LevelID: levelID}
}

func CourseScope() QuizScope {
	return QuizScope{Kind: QuizKindCourse}
}

// NodeID returns the hierarchy node the scope points at, empty for course exams.
func (s QuizScope) NodeID() string {
	switch s.Kind {
	case QuizKindContent:
		return s.ContentID
	case QuizKindSection:
		return s.SectionID
	case QuizKindLevel:
		return s.LevelID
	}
	return ""
}

// Validate validates the scope
func (s QuizScope) Validate() error {
	set := 0
	for _, id := range []string{s.ContentID, s.SectionID, s.LevelID} {
		if id != "" {
			set++
		}
	}
	switch s.Kind {
	case QuizKindContent:
		if s.ContentID == "" || set != 1 {
			return NewError(CodeValidation, "content quiz must reference exactly one content node", nil)
		}
	case QuizKindSection:
		if s.SectionID == "" || set != 1 {
			return NewError(CodeValidation, "section exam must reference exactly one section", nil)
		}
	case QuizKindLevel:
		if s.LevelID == "" || set != 1 {
			return NewError(CodeValidation, "level exam must reference exactly one level", nil)
		}
	case QuizKindCourse:
		if set != 0 {
			return NewError(CodeValidation, "course exam must not reference a hierarchy node", nil)
		}
	default:
		return NewError(CodeValidation, "unknown quiz kind", nil)
	}
	return nil
}

// Quiz represents a quiz or exam in the domain
type Quiz struct {
	ID                  string
	CourseID            string
	Scope               QuizScope
	Title               string
	MaxAttempts         int
	PassingScorePercent float64
	TimeLimitMinutes    int // 0 means no limit
	IsActive            bool
	IsDeleted           bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewQuiz creates a new active Quiz instance
func NewQuiz(courseID string, scope QuizScope, title string, maxAttempts int, passingScorePercent float64) *Quiz {
	now := time.Now()
	return &Quiz{
		CourseID:            courseID,
		Scope:               scope,
		Title:               title,
		MaxAttempts:         maxAttempts,
		PassingScorePercent: passingScorePercent,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Validate validates the quiz
func (q *Quiz) Validate() error {
	if q.CourseID == "" {
		return NewError(CodeValidation, "course ID is required", nil)
	}
	if q.MaxAttempts < 1 {
		return NewError(CodeValidation, "max attempts must be at least 1", nil)
	}
	if q.PassingScorePercent < 0 || q.PassingScorePercent > 100 {
		return NewError(CodeValidation, "passing score percent must be within [0,100]", nil)
	}
	if q.TimeLimitMinutes < 0 {
		return NewError(CodeValidation, "time limit must not be negative", nil)
	}
	return q.Scope.Validate()
}

// Available reports whether the quiz can currently be attempted at all.
func (q *Quiz) Available() bool {
	return q.IsActive && !q.IsDeleted
}

// QuestionType enumerates the supported deterministic question types.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeTrueFalse    QuestionType = "true_false"
)

// Question represents one question of a quiz
type Question struct {
	ID          string
	QuizID      string
	Type        QuestionType
	Text        string
	Points      int
	OrderKey    int
	CorrectBool bool // true/false questions only
	Options     []*QuestionOption
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the question
func (q *Question) Validate() error {
	if q.QuizID == "" {
		return NewError(CodeValidation, "quiz ID is required", nil)
	}
	if q.Points <= 0 {
		return NewError(CodeValidation, "question points must be positive", nil)
	}
	switch q.Type {
	case QuestionTypeSingleChoice:
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return NewError(CodeValidation, "single-choice question must have exactly one correct option", nil)
		}
	case QuestionTypeTrueFalse:
		// CorrectBool carries the answer, options are not used
	default:
		return NewError(CodeValidation, "unknown question type", nil)
	}
	return nil
}

// CorrectOptionID returns the id of the correct option, empty for true/false.
func (q *Question) CorrectOptionID() string {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

// QuestionOption represents one selectable option of a single-choice question
type QuestionOption struct {
	ID         string
	QuestionID string
	Text       string
	OrderKey   int
	IsCorrect  bool
}

// AttemptStatus is the state of one quiz attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
)

// QuizAttempt is one timed run of a user through a quiz. At most one attempt
// per (quiz, user) may be InProgress at a time, and attempt numbers are
// allocated densely starting at 1.
type QuizAttempt struct {
	ID                  string
	QuizID              string
	UserID              string
	AttemptNumber       int
	Status              AttemptStatus
	StartedAt           time.Time
	CompletedAt         *time.Time
	Score               int
	TotalPossiblePoints int
	Passed              bool
}

// NewQuizAttempt creates a new in-progress attempt
func NewQuizAttempt(quizID, userID string, attemptNumber int) *QuizAttempt {
	return &QuizAttempt{
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: attemptNumber,
		Status:        AttemptInProgress,
		StartedAt:     time.Now(),
	}
}

// Completed reports whether the attempt counts against the max-attempts limit.
func (a *QuizAttempt) Completed() bool {
	return a.Status == AttemptGraded || a.Status == AttemptExpired || a.Status == AttemptSubmitted
}

// DeadlineExceeded reports whether the attempt ran past the quiz's time limit
// at the given instant. A zero limit never expires.
func (a *QuizAttempt) DeadlineExceeded(timeLimitMinutes int, now time.Time) bool {
	if timeLimitMinutes <= 0 {
		return false
	}
	return now.After(a.StartedAt.Add(time.Duration(timeLimitMinutes) * time.Minute))
}

// Grade transitions the attempt InProgress -> Graded with the given result.
func (a *QuizAttempt) Grade(score, totalPossible int, passingScorePercent float64, now time.Time) error {
	if a.Status != AttemptInProgress {
		return NewInvalidOperationError("attempt is not in progress")
	}
	a.Score = score
	a.TotalPossiblePoints = totalPossible
	a.Passed = ScorePercent(score, totalPossible) >= passingScorePercent
	a.Status = AttemptGraded
	a.CompletedAt = &now
	return nil
}

// Expire transitions the attempt InProgress -> Expired.
func (a *QuizAttempt) Expire(now time.Time) error {
	if a.Status != AttemptInProgress {
		return NewInvalidOperationError("attempt is not in progress")
	}
	a.Status = AttemptExpired
	a.CompletedAt = &now
	return nil
}

// ScorePercent returns score as a percentage of total. An empty quiz (total 0)
// counts as 0%, which only passes when the passing threshold is 0.
func ScorePercent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// UserAnswer is one graded answer inside an attempt, unique per
// (attempt, question). Exactly one of SelectedOptionID / BoolAnswer is
// populated, matching the question type.
type UserAnswer struct {
	ID               string
	AttemptID        string
	QuestionID       string
	SelectedOptionID string
	BoolAnswer       *bool
	IsCorrect        bool
	PointsEarned     int
	AnsweredAt       time.Time
}

// SubmittedAnswer is the raw answer payload handed to SubmitAttempt before
// grading.
type SubmittedAnswer struct {
	QuestionID       string
	SelectedOptionID string
	BoolAnswer       *bool
}

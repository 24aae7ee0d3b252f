package domain

import "context"

// EventType identifies a user-visible domain event.
type EventType string

const (
	EventLevelUnlocked   EventType = "level_unlocked"
	EventQuizPassed      EventType = "quiz_passed"
	EventQuizFailed      EventType = "quiz_failed"
	EventPointsChanged   EventType = "points_changed"
	EventCourseCompleted EventType = "course_completed"
)

// Event is the payload handed to the notification emitter.
type Event struct {
	Type     EventType              `json:"type"`
	UserID   string                 `json:"user_id"`
	CourseID string                 `json:"course_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// EventPublisher is the one-way port to the notification emitter. Publishing
// is fire-and-forget: implementations log failures but callers never roll
// back a transaction because of one.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

package domain

import "time"

// ProgressCursor is the per (user, course) position in the course tree.
// Created on enrollment, mutated only by the progress service, never deleted.
type ProgressCursor struct {
	UserID           string
	CourseID         string
	CurrentLevelID   string
	CurrentSectionID string
	CurrentContentID string
	LastAccessed     time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewProgressCursor creates a cursor positioned at the start of a course
func NewProgressCursor(userID, courseID string) *ProgressCursor {
	now := time.Now()
	return &ProgressCursor{
		UserID:       userID,
		CourseID:     courseID,
		LastAccessed: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Completed reports whether the user finished the whole course.
func (c *ProgressCursor) Completed() bool {
	return c.CompletedAt != nil
}

// NodeCompletion records that a user completed one hierarchy node. Gating
// reads these rows: a gated node is reachable only when its previous live
// sibling has a completion record.
type NodeCompletion struct {
	ID          string
	UserID      string
	NodeID      string
	CourseID    string
	CompletedAt time.Time
}

// ContentSession is one open-or-closed visit of a user to a content item.
// Closing a session does not by itself complete anything; completion is an
// explicit act tied to section completion and required quizzes.
type ContentSession struct {
	ID        string
	UserID    string
	ContentID string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Open reports whether the session is still running.
func (s *ContentSession) Open() bool {
	return s.EndedAt == nil
}

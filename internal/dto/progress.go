package dto

import "time"

// CompleteSectionResponse is the result of completing a section.
// NextSectionID is empty when the course has no further sections.
type CompleteSectionResponse struct {
	Message       string `json:"message"`
	NextSectionID string `json:"next_section_id,omitempty"`
	CourseDone    bool   `json:"course_done"`
}

// ContentSessionResponse describes one content visit.
type ContentSessionResponse struct {
	SessionID string     `json:"session_id"`
	ContentID string     `json:"content_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// CanAccessResponse reports reachability of one node for the caller.
type CanAccessResponse struct {
	NodeID    string `json:"node_id"`
	CanAccess bool   `json:"can_access"`
}

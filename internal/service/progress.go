package service

import (
	"context"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/dto"
	"learnhub/internal/logger"
	"learnhub/internal/util"

	"go.uber.org/zap"
)

// ProgressService gates advancement through a course tree and records
// completion and content visits.
type ProgressService interface {
	// CanAccess reports whether the node is currently reachable for the user.
	CanAccess(ctx context.Context, userID, nodeID string) (bool, error)

	// CompleteSection marks a section done and resolves the next section.
	// Completing an already-completed section returns the same next section
	// again without side effects.
	CompleteSection(ctx context.Context, userID, sectionID string) (*dto.CompleteSectionResponse, error)

	// StartContent opens a content visit session. An already-open session is
	// returned as-is.
	StartContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error)

	// EndContent closes the open session for the pair.
	EndContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error)
}

type progressService struct {
	hierarchy  domain.HierarchyRepository
	progress   domain.ProgressRepository
	quizzes    domain.QuizRepository
	attempts   domain.AttemptRepository
	enrollment domain.EnrollmentService
	txManager  domain.TransactionManager
	publisher  domain.EventPublisher
}

// NewProgressService creates a new instance of progressService
func NewProgressService(
	hierarchy domain.HierarchyRepository,
	progress domain.ProgressRepository,
	quizzes domain.QuizRepository,
	attempts domain.AttemptRepository,
	enrollment domain.EnrollmentService,
	txManager domain.TransactionManager,
	publisher domain.EventPublisher,
) ProgressService {
	return &progressService{
		hierarchy:  hierarchy,
		progress:   progress,
		quizzes:    quizzes,
		attempts:   attempts,
		enrollment: enrollment,
		txManager:  txManager,
		publisher:  publisher,
	}
}

func (s *progressService) CanAccess(ctx context.Context, userID, nodeID string) (bool, error) {
	node, err := s.hierarchy.GetNode(ctx, nodeID)
	if err != nil {
		return false, domain.NewInternalError("failed to load node", err)
	}
	if node == nil || !node.Reachable() {
		return false, nil
	}

	enrolled, err := s.enrollment.IsEnrolled(ctx, userID, node.CourseID)
	if err != nil {
		return false, domain.NewInternalError("failed to check enrollment", err)
	}
	if !enrolled {
		return false, nil
	}

	if !node.RequiresPrevious {
		return true, nil
	}

	siblings, err := s.hierarchy.GetChildren(ctx, node.CourseID, node.ParentID, node.Kind)
	if err != nil {
		return false, domain.NewInternalError("failed to load siblings", err)
	}
	prev := domain.PreviousSibling(node, siblings)
	if prev == nil {
		// First live sibling; nothing to gate on.
		return true, nil
	}

	completion, err := s.progress.GetCompletion(ctx, userID, prev.ID)
	if err != nil {
		return false, domain.NewInternalError("failed to load completion", err)
	}
	return completion != nil, nil
}

// requiredQuizzesPassed checks every active quiz attached to the section or
// to one of its live content items. When the completion leaves the level
// (crossing into the next one or finishing the course), the level's own exams
// gate it too.
func (s *progressService) requiredQuizzesPassed(ctx context.Context, userID string, section *domain.HierarchyNode, leavingLevel bool) (bool, error) {
	nodeIDs := []string{section.ID}

	contents, err := s.hierarchy.GetChildren(ctx, section.CourseID, section.ID, domain.NodeKindContent)
	if err != nil {
		return false, domain.NewInternalError("failed to load section contents", err)
	}
	for _, c := range contents {
		if c.Reachable() {
			nodeIDs = append(nodeIDs, c.ID)
		}
	}
	if leavingLevel {
		nodeIDs = append(nodeIDs, section.ParentID)
	}

	for _, nodeID := range nodeIDs {
		quizzes, err := s.quizzes.GetQuizzesByScopeNode(ctx, nodeID)
		if err != nil {
			return false, domain.NewInternalError("failed to load node quizzes", err)
		}
		for _, quiz := range quizzes {
			passed, err := s.attempts.HasPassed(ctx, quiz.ID, userID)
			if err != nil {
				return false, domain.NewInternalError("failed to check quiz result", err)
			}
			if !passed {
				return false, nil
			}
		}
	}
	return true, nil
}

// nextSection resolves where the cursor moves after completing section: the
// next live sibling, else the first live section of the next live level, else
// nothing (course done). The second return value is the level the next
// section belongs to; levelUnlocked is true when the walk crossed into it.
func (s *progressService) nextSection(ctx context.Context, section *domain.HierarchyNode) (next *domain.HierarchyNode, level string, levelUnlocked bool, err error) {
	siblings, err := s.hierarchy.GetChildren(ctx, section.CourseID, section.ParentID, domain.NodeKindSection)
	if err != nil {
		return nil, "", false, domain.NewInternalError("failed to load sections", err)
	}
	if sib := domain.NextSibling(section, siblings); sib != nil {
		return sib, section.ParentID, false, nil
	}

	levels, err := s.hierarchy.GetChildren(ctx, section.CourseID, "", domain.NodeKindLevel)
	if err != nil {
		return nil, "", false, domain.NewInternalError("failed to load levels", err)
	}
	var currentLevel *domain.HierarchyNode
	for _, l := range levels {
		if l.ID == section.ParentID {
			currentLevel = l
			break
		}
	}
	if currentLevel == nil {
		return nil, "", false, domain.NewInternalError("section has no parent level", nil)
	}

	for lvl := domain.NextSibling(currentLevel, levels); lvl != nil; lvl = domain.NextSibling(lvl, levels) {
		sections, err := s.hierarchy.GetChildren(ctx, section.CourseID, lvl.ID, domain.NodeKindSection)
		if err != nil {
			return nil, "", false, domain.NewInternalError("failed to load next level sections", err)
		}
		if first := domain.FirstSibling(sections); first != nil {
			return first, lvl.ID, true, nil
		}
	}
	return nil, "", false, nil
}

func (s *progressService) CompleteSection(ctx context.Context, userID, sectionID string) (*dto.CompleteSectionResponse, error) {
	section, err := s.hierarchy.GetNode(ctx, sectionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load section", err)
	}
	if section == nil || section.Kind != domain.NodeKindSection || !section.Reachable() {
		return nil, domain.NewNotFoundError("section not found")
	}

	enrolled, err := s.enrollment.IsEnrolled(ctx, userID, section.CourseID)
	if err != nil {
		return nil, domain.NewInternalError("failed to check enrollment", err)
	}
	if !enrolled {
		return nil, domain.NewForbiddenError("not enrolled in course")
	}

	reachable, err := s.CanAccess(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}
	if !reachable {
		return nil, domain.NewNotFoundError("section is not reachable")
	}

	next, nextLevelID, levelUnlocked, err := s.nextSection(ctx, section)
	if err != nil {
		return nil, err
	}

	// Idempotency: a repeated completion re-returns the same next section
	// without touching the cursor or emitting events.
	existing, err := s.progress.GetCompletion(ctx, userID, sectionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load completion", err)
	}
	if existing != nil {
		resp := &dto.CompleteSectionResponse{Message: "section already completed"}
		if next != nil {
			resp.NextSectionID = next.ID
		} else {
			resp.CourseDone = true
		}
		return resp, nil
	}

	passed, err := s.requiredQuizzesPassed(ctx, userID, section, levelUnlocked || next == nil)
	if err != nil {
		return nil, err
	}
	if !passed {
		return nil, domain.NewInvalidOperationError("required quiz not passed yet")
	}

	var events []domain.Event
	courseDone := false

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		now := time.Now()

		if err := s.progress.CreateCompletion(txCtx, &domain.NodeCompletion{
			ID:          util.NewULID(),
			UserID:      userID,
			NodeID:      sectionID,
			CourseID:    section.CourseID,
			CompletedAt: now,
		}); err != nil {
			// A concurrent completion of the same section wins the race; the
			// idempotent answer is the same either way.
			if domain.IsCode(err, domain.CodeConflict) {
				return nil
			}
			return err
		}

		cursor, err := s.progress.GetCursor(txCtx, userID, section.CourseID)
		if err != nil {
			return err
		}
		if cursor == nil {
			cursor = domain.NewProgressCursor(userID, section.CourseID)
		}
		cursor.LastAccessed = now

		if next != nil {
			cursor.CurrentLevelID = nextLevelID
			cursor.CurrentSectionID = next.ID
			cursor.CurrentContentID = ""
			if levelUnlocked {
				events = append(events, domain.Event{
					Type:     domain.EventLevelUnlocked,
					UserID:   userID,
					CourseID: section.CourseID,
					Payload:  map[string]interface{}{"level_id": nextLevelID},
				})
			}
		} else {
			courseDone = true
			if cursor.CompletedAt == nil {
				cursor.CompletedAt = &now
				events = append(events, domain.Event{
					Type:     domain.EventCourseCompleted,
					UserID:   userID,
					CourseID: section.CourseID,
				})
			}
		}

		return s.progress.SaveCursor(txCtx, cursor)
	})
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		s.publisher.Publish(ctx, e)
	}

	resp := &dto.CompleteSectionResponse{Message: "section completed", CourseDone: courseDone}
	if next != nil {
		resp.NextSectionID = next.ID
	}
	logger.Get().Info("section completed",
		zap.String("user_id", userID),
		zap.String("section_id", sectionID),
		zap.String("next_section_id", resp.NextSectionID))
	return resp, nil
}

func (s *progressService) StartContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error) {
	reachable, err := s.CanAccess(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if !reachable {
		return nil, domain.NewNotFoundError("content not found")
	}

	open, err := s.progress.GetOpenSession(ctx, userID, contentID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load open session", err)
	}
	if open != nil {
		return sessionResponse(open), nil
	}

	session := &domain.ContentSession{
		ID:        util.NewULID(),
		UserID:    userID,
		ContentID: contentID,
		StartedAt: time.Now(),
	}
	if err := s.progress.CreateSession(ctx, session); err != nil {
		return nil, domain.NewInternalError("failed to create session", err)
	}
	return sessionResponse(session), nil
}

func (s *progressService) EndContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error) {
	open, err := s.progress.GetOpenSession(ctx, userID, contentID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load open session", err)
	}
	if open == nil {
		return nil, domain.NewNotFoundError("no open session for content")
	}

	now := time.Now()
	if err := s.progress.CloseSession(ctx, open.ID, now); err != nil {
		return nil, err
	}
	open.EndedAt = &now
	return sessionResponse(open), nil
}

func sessionResponse(s *domain.ContentSession) *dto.ContentSessionResponse {
	return &dto.ContentSessionResponse{
		SessionID: s.ID,
		ContentID: s.ContentID,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}

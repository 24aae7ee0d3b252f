package service

import (
	"context"
	"sync"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/dto"

	"github.com/stretchr/testify/mock"
)

// stubTxManager runs the function directly; the repositories under test are
// mocks, so there is no real transaction to join.
type stubTxManager struct{}

func (stubTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// --- MockHierarchyRepository ---

type MockHierarchyRepository struct {
	mock.Mock
}

func (m *MockHierarchyRepository) GetNode(ctx context.Context, id string) (*domain.HierarchyNode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HierarchyNode), args.Error(1)
}

func (m *MockHierarchyRepository) GetChildren(ctx context.Context, courseID, parentID string, kind domain.NodeKind) ([]*domain.HierarchyNode, error) {
	args := m.Called(ctx, courseID, parentID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.HierarchyNode), args.Error(1)
}

// --- MockProgressRepository ---

type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) GetCursor(ctx context.Context, userID, courseID string) (*domain.ProgressCursor, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProgressCursor), args.Error(1)
}

func (m *MockProgressRepository) SaveCursor(ctx context.Context, cursor *domain.ProgressCursor) error {
	args := m.Called(ctx, cursor)
	return args.Error(0)
}

func (m *MockProgressRepository) GetCompletion(ctx context.Context, userID, nodeID string) (*domain.NodeCompletion, error) {
	args := m.Called(ctx, userID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NodeCompletion), args.Error(1)
}

func (m *MockProgressRepository) CreateCompletion(ctx context.Context, completion *domain.NodeCompletion) error {
	args := m.Called(ctx, completion)
	return args.Error(0)
}

func (m *MockProgressRepository) GetOpenSession(ctx context.Context, userID, contentID string) (*domain.ContentSession, error) {
	args := m.Called(ctx, userID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentSession), args.Error(1)
}

func (m *MockProgressRepository) CreateSession(ctx context.Context, session *domain.ContentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockProgressRepository) CloseSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	args := m.Called(ctx, sessionID, endedAt)
	return args.Error(0)
}

// --- MockQuizRepository ---

type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetQuestions(ctx context.Context, quizID string) ([]*domain.Question, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuizRepository) GetQuizzesByScopeNode(ctx context.Context, nodeID string) ([]*domain.Quiz, error) {
	args := m.Called(ctx, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Quiz), args.Error(1)
}

// --- MockAttemptRepository ---

type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) GetAttemptByID(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetInProgress(ctx context.Context, quizID, userID string) (*domain.QuizAttempt, error) {
	args := m.Called(ctx, quizID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) CountAttempts(ctx context.Context, quizID, userID string) (int, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) UpdateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) SaveAnswers(ctx context.Context, answers []*domain.UserAnswer) error {
	args := m.Called(ctx, answers)
	return args.Error(0)
}

func (m *MockAttemptRepository) HasPassed(ctx context.Context, quizID, userID string) (bool, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttemptRepository) ListExpirable(ctx context.Context, now time.Time) ([]*domain.QuizAttempt, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QuizAttempt), args.Error(1)
}

// --- MockPointsRepository ---

type MockPointsRepository struct {
	mock.Mock
}

func (m *MockPointsRepository) GetCoursePoints(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoursePoints), args.Error(1)
}

func (m *MockPointsRepository) GetCoursePointsForUpdate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoursePoints), args.Error(1)
}

func (m *MockPointsRepository) CreateCoursePoints(ctx context.Context, cp *domain.CoursePoints) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockPointsRepository) UpdateCoursePoints(ctx context.Context, cp *domain.CoursePoints) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockPointsRepository) InsertTransaction(ctx context.Context, tx *domain.PointTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockPointsRepository) ListTransactions(ctx context.Context, userID, courseID string) ([]*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PointTransaction), args.Error(1)
}

func (m *MockPointsRepository) HasQuizAward(ctx context.Context, quizAttemptID string) (bool, error) {
	args := m.Called(ctx, quizAttemptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPointsRepository) ListCourseAggregates(ctx context.Context, courseID string) ([]*domain.CoursePoints, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CoursePoints), args.Error(1)
}

func (m *MockPointsRepository) UpdateRank(ctx context.Context, userID, courseID string, rank int) error {
	args := m.Called(ctx, userID, courseID, rank)
	return args.Error(0)
}

// --- MockEnrollmentService ---

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentService) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

// --- MockCache ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockProgressService ---

type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) CanAccess(ctx context.Context, userID, nodeID string) (bool, error) {
	args := m.Called(ctx, userID, nodeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressService) CompleteSection(ctx context.Context, userID, sectionID string) (*dto.CompleteSectionResponse, error) {
	args := m.Called(ctx, userID, sectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CompleteSectionResponse), args.Error(1)
}

func (m *MockProgressService) StartContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error) {
	args := m.Called(ctx, userID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ContentSessionResponse), args.Error(1)
}

func (m *MockProgressService) EndContent(ctx context.Context, userID, contentID string) (*dto.ContentSessionResponse, error) {
	args := m.Called(ctx, userID, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ContentSessionResponse), args.Error(1)
}

// --- MockPointsService ---

type MockPointsService struct {
	mock.Mock
}

func (m *MockPointsService) RecordTransaction(ctx context.Context, userID, courseID string, pointsChanged int, source domain.PointSource, meta TransactionMeta) (*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, courseID, pointsChanged, source, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockPointsService) AwardQuizPoints(ctx context.Context, attempt *domain.QuizAttempt, courseID string) error {
	args := m.Called(ctx, attempt, courseID)
	return args.Error(0)
}

func (m *MockPointsService) AwardBonus(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, courseID, amount, awardedBy, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockPointsService) DeductPoints(ctx context.Context, userID, courseID string, amount int, awardedBy, description string) (*domain.PointTransaction, error) {
	args := m.Called(ctx, userID, courseID, amount, awardedBy, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointTransaction), args.Error(1)
}

func (m *MockPointsService) Recalculate(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoursePoints), args.Error(1)
}

func (m *MockPointsService) GetCoursePoints(ctx context.Context, userID, courseID string) (*domain.CoursePoints, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CoursePoints), args.Error(1)
}

// --- MockRankingService ---

type MockRankingService struct {
	mock.Mock
}

func (m *MockRankingService) UpdateRanks(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

func (m *MockRankingService) Leaderboard(ctx context.Context, courseID, userID string, limit int) (*dto.LeaderboardResponse, error) {
	args := m.Called(ctx, courseID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LeaderboardResponse), args.Error(1)
}

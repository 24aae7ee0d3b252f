package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"learnhub/internal/cache"
	"learnhub/internal/domain"
	"learnhub/internal/dto"
	"learnhub/internal/logger"

	"go.uber.org/zap"
)

const leaderboardCacheTTL = 30 * time.Second

// RankingService recomputes and serves per-course rank order.
type RankingService interface {
	// UpdateRanks reorders every aggregate of the course and persists the
	// 1-based ranks. Equal totals rank by earliest LastUpdated.
	UpdateRanks(ctx context.Context, courseID string) error

	// Leaderboard returns the top-limit window plus the caller's own row.
	Leaderboard(ctx context.Context, courseID, userID string, limit int) (*dto.LeaderboardResponse, error)
}

type rankingService struct {
	repo      domain.PointsRepository
	cache     domain.Cache
	txManager domain.TransactionManager
}

// NewRankingService creates a new instance of rankingService
func NewRankingService(repo domain.PointsRepository, cacheClient domain.Cache, txManager domain.TransactionManager) RankingService {
	return &rankingService{
		repo:      repo,
		cache:     cacheClient,
		txManager: txManager,
	}
}

func leaderboardCacheKey(courseID string) string {
	return cache.GenerateCacheKey("ranking", "leaderboard", courseID)
}

func (s *rankingService) UpdateRanks(ctx context.Context, courseID string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// One transaction reads a consistent snapshot of the course's
		// aggregates and writes all ranks against it.
		aggs, err := s.repo.ListCourseAggregates(txCtx, courseID)
		if err != nil {
			return err
		}
		for i, agg := range aggs {
			rank := i + 1
			if agg.CurrentRank == rank {
				continue
			}
			if err := s.repo.UpdateRank(txCtx, agg.UserID, courseID, rank); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.NewInternalError("failed to update ranks", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, leaderboardCacheKey(courseID)); err != nil {
			logger.Get().Warn("failed to invalidate leaderboard cache",
				zap.String("course_id", courseID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *rankingService) loadEntries(ctx context.Context, courseID string) ([]domain.LeaderboardEntry, error) {
	key := leaderboardCacheKey(courseID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			var entries []domain.LeaderboardEntry
			if jsonErr := json.Unmarshal([]byte(cached), &entries); jsonErr == nil {
				return entries, nil
			}
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("leaderboard cache read failed",
				zap.String("course_id", courseID),
				zap.Error(err))
		}
	}

	aggs, err := s.repo.ListCourseAggregates(ctx, courseID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load course aggregates", err)
	}

	entries := make([]domain.LeaderboardEntry, len(aggs))
	for i, agg := range aggs {
		rank := agg.CurrentRank
		if rank == 0 {
			rank = i + 1
		}
		entries[i] = domain.LeaderboardEntry{
			UserID:      agg.UserID,
			TotalPoints: agg.TotalPoints,
			Rank:        rank,
		}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), leaderboardCacheTTL); err != nil {
				logger.Get().Warn("leaderboard cache write failed",
					zap.String("course_id", courseID),
					zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (s *rankingService) Leaderboard(ctx context.Context, courseID, userID string, limit int) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := s.loadEntries(ctx, courseID)
	if err != nil {
		return nil, err
	}

	resp := &dto.LeaderboardResponse{CourseID: courseID}
	for i, e := range entries {
		if i < limit {
			resp.Entries = append(resp.Entries, dto.LeaderboardEntryResponse{
				UserID:      e.UserID,
				TotalPoints: e.TotalPoints,
				Rank:        e.Rank,
			})
		}
		if e.UserID == userID {
			resp.Me = &dto.LeaderboardEntryResponse{
				UserID:      e.UserID,
				TotalPoints: e.TotalPoints,
				Rank:        e.Rank,
			}
		}
	}
	return resp, nil
}

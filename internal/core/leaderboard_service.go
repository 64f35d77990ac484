package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
	"squadquiz-backend-go/pkg/cache"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 50

	// leaderboardTTL bounds how stale a served ranking can be. Clients poll
	// on roughly the same interval, so a shorter TTL would just shift load
	// to Firestore without changing what users see.
	leaderboardTTL = 5 * time.Minute
)

// leaderboardService implements the LeaderboardService interface.
type leaderboardService struct {
	userRepo  db.UserRepository
	squadRepo db.SquadRepository
	scoreRepo db.ScoreRepository
	cache     cache.Cache
	nowFn     func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService instance.
// c may be nil; rankings are then computed on every call.
func NewLeaderboardService(ur db.UserRepository, sr db.SquadRepository, scr db.ScoreRepository, c cache.Cache) LeaderboardService {
	return &leaderboardService{
		userRepo:  ur,
		squadRepo: sr,
		scoreRepo: scr,
		cache:     c,
		nowFn:     time.Now,
	}
}

func clampLeaderboardSize(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		return maxLeaderboardSize
	}
	return limit
}

// cachedFetch serves out from the cache when possible, otherwise calls fetch
// and stores the result. Cache failures are logged and fall through to the
// repository; the leaderboard must not depend on Redis being up.
func cachedFetch[T any](c cache.Cache, key string, fetch func() ([]T, error)) ([]T, error) {
	if c != nil {
		if raw, err := c.Get(key); err == nil && raw != "" {
			var out []T
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
			fmt.Printf("Warning: discarding malformed cache entry for key '%s'\n", key)
		}
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}

	if c != nil {
		if body, err := json.Marshal(out); err == nil {
			if setErr := c.Set(key, string(body), leaderboardTTL); setErr != nil {
				fmt.Printf("Warning: failed to cache leaderboard key '%s': %v\n", key, setErr)
			}
		}
	}
	return out, nil
}

// TopUsers returns the highest scoring users, best first.
func (s *leaderboardService) TopUsers(ctx context.Context, limit int) ([]*models.User, error) {
	if s.userRepo == nil {
		return nil, errors.New("leaderboardService: userRepo not initialized")
	}
	limit = clampLeaderboardSize(limit)
	key := fmt.Sprintf("leaderboard:users:%d", limit)

	return cachedFetch(s.cache, key, func() ([]*models.User, error) {
		users, err := s.userRepo.TopByScore(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch top users: %w", err)
		}
		return users, nil
	})
}

// TopSquads returns the highest scoring squads, best first.
func (s *leaderboardService) TopSquads(ctx context.Context, limit int) ([]*models.Squad, error) {
	if s.squadRepo == nil {
		return nil, errors.New("leaderboardService: squadRepo not initialized")
	}
	limit = clampLeaderboardSize(limit)
	key := fmt.Sprintf("leaderboard:squads:%d", limit)

	return cachedFetch(s.cache, key, func() ([]*models.Squad, error) {
		squads, err := s.squadRepo.TopByScore(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch top squads: %w", err)
		}
		return squads, nil
	})
}

// DailyScores returns today's score entries, highest first.
func (s *leaderboardService) DailyScores(ctx context.Context, limit int) ([]*models.ScoreEntry, error) {
	if s.scoreRepo == nil {
		return nil, errors.New("leaderboardService: scoreRepo not initialized")
	}
	limit = clampLeaderboardSize(limit)
	day := s.nowFn().UTC().Format("2006-01-02")
	key := fmt.Sprintf("leaderboard:daily:%s:%d", day, limit)

	return cachedFetch(s.cache, key, func() ([]*models.ScoreEntry, error) {
		entries, err := s.scoreRepo.ListByDay(ctx, day, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch daily scores for %s: %w", day, err)
		}
		return entries, nil
	})
}

package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
	"squadquiz-backend-go/pkg/cache"
)

func seedLeaderboard(t *testing.T) LeaderboardService {
	t.Helper()
	store := db.NewMemoryStore()
	userRepo := db.NewMemoryUserRepository(store)
	squadRepo := db.NewMemorySquadRepository(store)
	quizRepo := db.NewMemoryQuizRepository(store)
	scoreRepo := db.NewMemoryScoreRepository(store)

	ctx := context.Background()
	quizID, err := quizRepo.Create(ctx, &models.Quiz{
		Title: "Seed Quiz",
		Questions: []models.Question{
			{Prompt: "q", Options: []string{"a", "b"}, Answer: 0},
		},
	})
	require.NoError(t, err)

	// Users finish with distinct totals so ordering is unambiguous.
	day := time.Now().UTC().Format("2006-01-02")
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("user%d", i)
		require.NoError(t, userRepo.Create(ctx, &models.User{ID: id, DisplayName: id}))
		_, err := userRepo.RecordQuizResult(ctx, id, quizID, int64(i+1), day)
		require.NoError(t, err)
	}

	return NewLeaderboardService(userRepo, squadRepo, scoreRepo, nil)
}

func TestTopUsersOrdering(t *testing.T) {
	ctx := context.Background()
	svc := seedLeaderboard(t)

	users, err := svc.TopUsers(ctx, 3)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "user4", users[0].ID)
	assert.Equal(t, "user3", users[1].ID)
	assert.Equal(t, "user2", users[2].ID)
}

func TestTopUsersDefaultLimit(t *testing.T) {
	ctx := context.Background()
	svc := seedLeaderboard(t)

	users, err := svc.TopUsers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, users, 5, "fewer users than the default limit returns them all")

	users, err = svc.TopUsers(ctx, 9999)
	require.NoError(t, err)
	assert.Len(t, users, 5, "oversized limits are clamped, not an error")
}

func TestTopSquadsIsCached(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	userRepo := db.NewMemoryUserRepository(store)
	squadRepo := db.NewMemorySquadRepository(store)
	scoreRepo := db.NewMemoryScoreRepository(store)

	require.NoError(t, userRepo.Create(ctx, &models.User{ID: "alice", DisplayName: "alice"}))
	squad := &models.Squad{Name: "Night Owls"}
	require.NoError(t, squadRepo.CreateWithFounder(ctx, squad, "alice"))

	svc := NewLeaderboardService(userRepo, squadRepo, scoreRepo, cache.NewMemoryCache())

	squads, err := svc.TopSquads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, squads, 1)

	// A squad created after the first read stays invisible until the cache
	// entry expires.
	require.NoError(t, userRepo.Create(ctx, &models.User{ID: "bob", DisplayName: "bob"}))
	require.NoError(t, squadRepo.CreateWithFounder(ctx, &models.Squad{Name: "Early Birds"}, "bob"))

	squads, err = svc.TopSquads(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, squads, 1, "served from cache")

	// A different limit is a different cache key and sees fresh data.
	squads, err = svc.TopSquads(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, squads, 2)
}

func TestDailyScoresOrdering(t *testing.T) {
	ctx := context.Background()
	svc := seedLeaderboard(t)

	entries, err := svc.DailyScores(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, int64(5), entries[0].Score)
	assert.Equal(t, int64(1), entries[4].Score)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"squadquiz-backend-go/internal/config"
	"squadquiz-backend-go/internal/core"
	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
)

// newTestRouter wires the full HTTP surface over the in-memory store, the
// same composition main.go does for STORE_BACKEND=memory.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemoryStore()
	userRepo := db.NewMemoryUserRepository(store)
	squadRepo := db.NewMemorySquadRepository(store)
	quizRepo := db.NewMemoryQuizRepository(store)
	scoreRepo := db.NewMemoryScoreRepository(store)

	_, err := quizRepo.Create(context.Background(), &models.Quiz{
		Title: "General Knowledge",
		Questions: []models.Question{
			{Prompt: "2+2?", Options: []string{"3", "4"}, Answer: 1},
			{Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, Answer: 0},
		},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		StoreBackend: config.StoreBackendMemory,
		ClientURL:    "http://localhost:5173",
	}

	router := gin.New()
	SetupRoutes(
		router,
		cfg,
		zap.NewNop(),
		core.NewUserService(userRepo),
		core.NewSquadService(squadRepo, userRepo),
		core.NewQuizService(quizRepo, userRepo, scoreRepo, nil),
		core.NewLeaderboardService(userRepo, squadRepo, scoreRepo, nil),
	)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func initializeUser(t *testing.T, router *gin.Engine, userID string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/initialize", userID, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSquadLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	initializeUser(t, router, "alice")
	initializeUser(t, router, "bob")

	// Create.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/squads", "alice", gin.H{"name": "Night Owls", "bio": "hoot"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created SquadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.RoleLeader, created.Role)
	squadID := created.ID

	// Duplicate name conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads", "bob", gin.H{"name": "night owls"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Invalid name.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads", "bob", gin.H{"name": "ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bob joins; his view of the squad shows the member role.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads/"+squadID+"/join", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var joined SquadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	assert.Equal(t, models.RoleMember, joined.Role)
	assert.Len(t, joined.Members, 2)

	// Non-owner cannot delete.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/squads/"+squadID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Owner cannot leave.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads/"+squadID+"/leave", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bob leaves.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads/"+squadID+"/leave", "bob", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Search finds the squad.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/squads/search?q=owls", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []SquadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, models.RoleNone, results[0].Role)

	// Owner deletes.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/squads/"+squadID, "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/squads/"+squadID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSquadCapacityOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	initializeUser(t, router, "owner")
	rec := doJSON(t, router, http.MethodPost, "/api/v1/squads", "owner", gin.H{"name": "Full House"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SquadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for i := 1; i < models.MaxSquadMembers; i++ {
		id := fmt.Sprintf("user%d", i)
		initializeUser(t, router, id)
		rec = doJSON(t, router, http.MethodPost, "/api/v1/squads/"+created.ID+"/join", id, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	initializeUser(t, router, "latecomer")
	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads/"+created.ID+"/join", "latecomer", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDailyQuizOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	initializeUser(t, router, "alice")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/quiz/daily", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quiz DailyQuizResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quiz))
	require.Len(t, quiz.Questions, 2)

	// Answers must not leak to the client.
	assert.NotContains(t, rec.Body.String(), "answer")

	// Complete it.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/quiz/complete", "alice", gin.H{"quizId": quiz.ID, "score": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Second completion the same day conflicts, and the daily quiz is gone.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/quiz/complete", "alice", gin.H{"quizId": quiz.ID, "score": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/quiz/daily", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The score shows up in the history and on the public leaderboard.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/me/scores", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.ScoreEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Score)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/leaderboard/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, "leaderboards are public")
	var leaders []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leaders))
	require.Len(t, leaders, 1)
	assert.Equal(t, int64(2), leaders[0].TotalScore)
}

func TestGetMySquadOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	initializeUser(t, router, "alice")

	// No squad yet.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/squads/mine", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Squad *SquadResponse `json:"squad"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Squad)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/squads", "alice", gin.H{"name": "Night Owls"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/squads/mine", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Squad)
	assert.Equal(t, models.RoleLeader, body.Squad.Role)
}

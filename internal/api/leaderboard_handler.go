package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"squadquiz-backend-go/internal/core"
)

// LeaderboardHandler handles API endpoints for rankings.
type LeaderboardHandler struct {
	leaderboardService core.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(ls core.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func leaderboardLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return limit
}

// TopUsers handles GET /leaderboard/users?limit=n
func (h *LeaderboardHandler) TopUsers(c *gin.Context) {
	users, err := h.leaderboardService.TopUsers(c.Request.Context(), leaderboardLimit(c))
	if err != nil {
		log.Printf("TopUsers leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch user leaderboard"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// TopSquads handles GET /leaderboard/squads?limit=n
func (h *LeaderboardHandler) TopSquads(c *gin.Context) {
	squads, err := h.leaderboardService.TopSquads(c.Request.Context(), leaderboardLimit(c))
	if err != nil {
		log.Printf("TopSquads leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch squad leaderboard"})
		return
	}
	c.JSON(http.StatusOK, squads)
}

// DailyScores handles GET /leaderboard/daily?limit=n
func (h *LeaderboardHandler) DailyScores(c *gin.Context) {
	entries, err := h.leaderboardService.DailyScores(c.Request.Context(), leaderboardLimit(c))
	if err != nil {
		log.Printf("DailyScores leaderboard failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch daily scores"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"squadquiz-backend-go/internal/core"
)

// UserHandler handles API endpoints for the authenticated user's own profile.
type UserHandler struct {
	userService  core.UserService
	squadService core.SquadService
	quizService  core.QuizService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, ss core.SquadService, qs core.QuizService) *UserHandler {
	return &UserHandler{
		userService:  us,
		squadService: ss,
		quizService:  qs,
	}
}

// GetCurrentUserProfile handles GET /users/me.
// The response includes the user's squad (with their role in it) when they
// have one, so the client does not need a second round trip.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrUserNotFound.Error()})
			return
		}
		log.Printf("GetCurrentUserProfile: failed for userID %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch user profile"})
		return
	}

	response := gin.H{"user": user, "squad": nil}
	squad, err := h.squadService.GetSquadForUser(c.Request.Context(), userID)
	if err != nil {
		log.Printf("GetCurrentUserProfile: squad lookup failed for userID %s: %v", userID, err)
	} else if squad != nil {
		sr := newSquadResponse(squad, userID)
		response["squad"] = sr
	}
	c.JSON(http.StatusOK, response)
}

// GetMyScores handles GET /users/me/scores?limit=n
func (h *UserHandler) GetMyScores(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	entries, err := h.quizService.RecentScores(c.Request.Context(), userID, limit)
	if err != nil {
		log.Printf("GetMyScores: failed for userID %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch score history"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"squadquiz-backend-go/internal/core"
	"squadquiz-backend-go/internal/models"
)

// SquadHandler handles API endpoints related to squads.
type SquadHandler struct {
	squadService core.SquadService
}

// NewSquadHandler creates a new SquadHandler.
func NewSquadHandler(ss core.SquadService) *SquadHandler {
	return &SquadHandler{squadService: ss}
}

// mapSquadErrorToStatus maps errors from core.SquadService to HTTP status codes and ErrorResponse.
func mapSquadErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrSquadNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrSquadNotFound.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrInvalidSquadName):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidSquadName.Error()}
	case errors.Is(err, core.ErrSquadNameTaken):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrSquadNameTaken.Error()}
	case errors.Is(err, core.ErrSquadFull):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrSquadFull.Error()}
	case errors.Is(err, core.ErrAlreadyMember):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrAlreadyMember.Error()}
	case errors.Is(err, core.ErrAlreadyInSquad):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrAlreadyInSquad.Error()}
	case errors.Is(err, core.ErrNotAMember):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotAMember.Error()}
	case errors.Is(err, core.ErrOwnerCannotLeave):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrOwnerCannotLeave.Error()}
	case errors.Is(err, core.ErrNotSquadOwner):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotSquadOwner.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// requestUserID pulls the authenticated user's ID out of the Gin context.
func requestUserID(c *gin.Context) (string, bool) {
	rawUserID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return "", false
	}
	userID, ok := rawUserID.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user ID in context"})
		return "", false
	}
	return userID, true
}

// CreateSquad handles POST /squads
func (h *SquadHandler) CreateSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req models.CreateSquadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	squad, err := h.squadService.CreateSquad(c.Request.Context(), userID, req)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSquadResponse(squad, userID))
}

// GetSquad handles GET /squads/:squadId
func (h *SquadHandler) GetSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	squadID := c.Param("squadId")
	if squadID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Squad ID is required"})
		return
	}

	squad, err := h.squadService.GetSquadByID(c.Request.Context(), squadID)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, newSquadResponse(squad, userID))
}

// GetMySquad handles GET /squads/mine
func (h *SquadHandler) GetMySquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	squad, err := h.squadService.GetSquadForUser(c.Request.Context(), userID)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	if squad == nil {
		c.JSON(http.StatusOK, gin.H{"squad": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"squad": newSquadResponse(squad, userID)})
}

// SearchSquads handles GET /squads/search?q=term&limit=n
func (h *SquadHandler) SearchSquads(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	term := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	squads, err := h.squadService.SearchSquads(c.Request.Context(), term, limit)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}

	results := make([]SquadResponse, 0, len(squads))
	for _, squad := range squads {
		results = append(results, newSquadResponse(squad, userID))
	}
	c.JSON(http.StatusOK, results)
}

// UpdateSquad handles PUT /squads/:squadId
func (h *SquadHandler) UpdateSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	squadID := c.Param("squadId")
	if squadID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Squad ID is required"})
		return
	}

	var req models.UpdateSquadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	squad, err := h.squadService.UpdateSquad(c.Request.Context(), userID, squadID, req)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, newSquadResponse(squad, userID))
}

// JoinSquad handles POST /squads/:squadId/join
func (h *SquadHandler) JoinSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	squadID := c.Param("squadId")
	if squadID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Squad ID is required"})
		return
	}

	squad, err := h.squadService.JoinSquad(c.Request.Context(), userID, squadID)
	if err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, newSquadResponse(squad, userID))
}

// LeaveSquad handles POST /squads/:squadId/leave
func (h *SquadHandler) LeaveSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	squadID := c.Param("squadId")
	if squadID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Squad ID is required"})
		return
	}

	if err := h.squadService.LeaveSquad(c.Request.Context(), userID, squadID); err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Left squad successfully"})
}

// DeleteSquad handles DELETE /squads/:squadId
func (h *SquadHandler) DeleteSquad(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}
	squadID := c.Param("squadId")
	if squadID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Squad ID is required"})
		return
	}

	if err := h.squadService.DeleteSquad(c.Request.Context(), userID, squadID); err != nil {
		mapSquadErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Squad deleted successfully"})
}

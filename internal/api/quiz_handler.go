package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"squadquiz-backend-go/internal/core"
	"squadquiz-backend-go/internal/models"
)

// QuizHandler handles API endpoints for the daily quiz.
type QuizHandler struct {
	quizService core.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(qs core.QuizService) *QuizHandler {
	return &QuizHandler{quizService: qs}
}

// mapQuizErrorToStatus maps errors from core.QuizService to HTTP status codes and ErrorResponse.
func mapQuizErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrAlreadyCompleted):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrAlreadyCompleted.Error()}
	case errors.Is(err, core.ErrQuizNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrQuizNotFound.Error()}
	case errors.Is(err, core.ErrNoQuizzes):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrNoQuizzes.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrInvalidScore):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidScore.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// GetDailyQuiz handles GET /quiz/daily
func (h *QuizHandler) GetDailyQuiz(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.FetchDailyQuiz(c.Request.Context(), userID)
	if err != nil {
		mapQuizErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, newDailyQuizResponse(quiz))
}

// CompleteQuiz handles POST /quiz/complete
func (h *QuizHandler) CompleteQuiz(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req models.CompleteQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	entry, err := h.quizService.CompleteQuiz(c.Request.Context(), userID, req)
	if err != nil {
		mapQuizErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

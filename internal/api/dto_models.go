package api

import "squadquiz-backend-go/internal/models"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SquadResponse wraps a squad with the requesting user's relationship to it.
// Role is derived per request; it is never stored.
type SquadResponse struct {
	*models.Squad
	Role models.Role `json:"role"`
}

// newSquadResponse builds a SquadResponse for the given viewer.
func newSquadResponse(squad *models.Squad, viewerID string) SquadResponse {
	return SquadResponse{
		Squad: squad,
		Role:  squad.RoleOf(viewerID),
	}
}

// DailyQuizResponse strips answers from the quiz before it goes to the client.
type DailyQuizResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Questions   []DailyQuizQuestion `json:"questions"`
}

// DailyQuizQuestion mirrors models.Question without the answer index.
type DailyQuizQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// newDailyQuizResponse copies quiz content for the client, dropping answers.
func newDailyQuizResponse(quiz *models.Quiz) DailyQuizResponse {
	questions := make([]DailyQuizQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = DailyQuizQuestion{Prompt: q.Prompt, Options: q.Options}
	}
	return DailyQuizResponse{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Questions:   questions,
	}
}

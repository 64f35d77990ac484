package models

// CreateSquadRequest represents the request body for creating a new squad.
type CreateSquadRequest struct {
	Name  string `json:"name" binding:"required"`
	Bio   string `json:"bio,omitempty"`
	Image string `json:"image,omitempty"`
}

// UpdateSquadRequest represents the request body for updating squad display
// fields. Pointers distinguish "clear this field" from "leave it alone".
// Members, ownerId and totalScore are not mutable through this path.
type UpdateSquadRequest struct {
	Name  *string `json:"name,omitempty"`
	Bio   *string `json:"bio,omitempty"`
	Image *string `json:"image,omitempty"`
}

// CompleteQuizRequest represents the request body for submitting a finished
// daily quiz.
type CompleteQuizRequest struct {
	QuizID string `json:"quizId" binding:"required"`
	Score  int64  `json:"score"`
}

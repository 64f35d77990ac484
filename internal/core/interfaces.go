package core

import (
	"context"

	"squadquiz-backend-go/internal/models"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one with default values.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// SquadService defines the interface for squad-related operations.
type SquadService interface {
	CreateSquad(ctx context.Context, userID string, req models.CreateSquadRequest) (*models.Squad, error)
	GetSquadByID(ctx context.Context, squadID string) (*models.Squad, error)
	// GetSquadForUser resolves the squad the user currently belongs to.
	// Returns (nil, nil) when the user has no squad.
	GetSquadForUser(ctx context.Context, userID string) (*models.Squad, error)
	SearchSquads(ctx context.Context, term string, limit int) ([]*models.Squad, error)
	UpdateSquad(ctx context.Context, userID, squadID string, req models.UpdateSquadRequest) (*models.Squad, error)
	JoinSquad(ctx context.Context, userID, squadID string) (*models.Squad, error)
	LeaveSquad(ctx context.Context, userID, squadID string) error
	DeleteSquad(ctx context.Context, userID, squadID string) error
}

// QuizService defines the interface for daily quiz operations.
type QuizService interface {
	// FetchDailyQuiz returns today's quiz for the user, or ErrAlreadyCompleted
	// if the user already submitted a result today.
	FetchDailyQuiz(ctx context.Context, userID string) (*models.Quiz, error)
	CompleteQuiz(ctx context.Context, userID string, req models.CompleteQuizRequest) (*models.ScoreEntry, error)
	// RecentScores returns the user's most recent score entries, newest first.
	RecentScores(ctx context.Context, userID string, limit int) ([]*models.ScoreEntry, error)
}

// LeaderboardService defines the interface for ranking queries.
type LeaderboardService interface {
	TopUsers(ctx context.Context, limit int) ([]*models.User, error)
	TopSquads(ctx context.Context, limit int) ([]*models.Squad, error)
	// DailyScores returns today's score entries, highest first.
	DailyScores(ctx context.Context, limit int) ([]*models.ScoreEntry, error)
}

package db

import (
	"context"

	"squadquiz-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error

	// ClearSquadRef clears the user's squad reference, but only if it still
	// equals squadID. Used to self-heal stale references to deleted squads.
	ClearSquadRef(ctx context.Context, userID, squadID string) error

	// RecordQuizResult atomically marks the user's quiz completion for the
	// given day, adds score to the user's total and to their squad's total
	// (if any), and appends a leaderboard score entry. Returns
	// ErrAlreadyCompleted if the user already completed a quiz that day.
	RecordQuizResult(ctx context.Context, userID, quizID string, score int64, day string) (*models.ScoreEntry, error)

	// TopByScore returns up to limit users ordered by total score descending.
	TopByScore(ctx context.Context, limit int) ([]*models.User, error)
}

// SquadRepository defines the interface for squad data storage operations.
// The mutating membership operations are atomic: each one reads all affected
// documents, validates against that fresh state, and writes the updates
// together, so concurrent callers can never break the squad invariants.
type SquadRepository interface {
	// CreateWithFounder creates the squad and points the founder's user
	// document at it in one transaction. Fails with ErrNameTaken if a squad
	// with the same (case-insensitive) name exists, ErrAlreadyInSquad if the
	// founder already belongs to a squad.
	CreateWithFounder(ctx context.Context, squad *models.Squad, founderID string) error

	GetByID(ctx context.Context, squadID string) (*models.Squad, error)

	// Search returns up to limit squads whose name contains term,
	// case-insensitively, ordered by name.
	Search(ctx context.Context, term string, limit int) ([]*models.Squad, error)

	// UpdateInfo merges the provided display fields, re-verifying ownership
	// and (for a name change) name uniqueness against fresh state.
	UpdateInfo(ctx context.Context, squadID, requestorID string, name, bio, image *string) (*models.Squad, error)

	// AddMember adds userID to the squad and sets the user's squad
	// reference in one transaction.
	AddMember(ctx context.Context, squadID, userID string) error

	// RemoveMember removes userID from the squad and clears the user's
	// squad reference in one transaction. The owner cannot be removed.
	RemoveMember(ctx context.Context, squadID, userID string) error

	// DeleteWithMembers deletes the squad and clears the squad reference of
	// every member that still points at it, all in one transaction.
	// Ownership is re-verified against fresh state.
	DeleteWithMembers(ctx context.Context, squadID, requestorID string) error

	// TopByScore returns up to limit squads ordered by total score descending.
	TopByScore(ctx context.Context, limit int) ([]*models.Squad, error)
}

// QuizRepository defines the interface for quiz data storage operations.
type QuizRepository interface {
	GetByID(ctx context.Context, quizID string) (*models.Quiz, error)
	List(ctx context.Context) ([]*models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) (string, error) // Returns new quiz ID
}

// ScoreRepository defines the interface for leaderboard score entries.
// Entries are written through UserRepository.RecordQuizResult; this interface
// serves the read side.
type ScoreRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.ScoreEntry, error)
	ListByDay(ctx context.Context, day string, limit int) ([]*models.ScoreEntry, error)
}

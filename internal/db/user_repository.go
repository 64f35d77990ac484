package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"squadquiz-backend-go/internal/models"
)

const usersCollection = "users"

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document to Firestore.
// The user.ID (Firebase Auth UID) is used as the Firestore document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document from Firestore by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID

	return &user, nil
}

// Update modifies an existing user document in Firestore.
// It uses Set with MergeAll so partial user structs only touch their own fields.
func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// ClearSquadRef clears the user's squad reference, but only if it still
// equals squadID. A user that joined a different squad in the meantime is
// left alone.
func (r *firestoreUserRepository) ClearSquadRef(ctx context.Context, userID, squadID string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userRef := r.client.Collection(usersCollection).Doc(userID)
		snap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
			}
			return fmt.Errorf("failed to get user '%s': %w", userID, err)
		}
		sid, err := snap.DataAt("squadId")
		if err != nil {
			return nil // no reference to clear
		}
		if s, ok := sid.(string); !ok || s != squadID {
			return nil
		}
		return tx.Update(userRef, []firestore.Update{
			{Path: "squadId", Value: firestore.Delete},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

// RecordQuizResult marks the user's quiz completion for the given day, adds
// the score to the user's total and to their squad's total, and appends a
// leaderboard score entry — all in one transaction. A dangling squad
// reference discovered here is cleared in the same transaction.
func (r *firestoreUserRepository) RecordQuizResult(ctx context.Context, userID, quizID string, score int64, day string) (*models.ScoreEntry, error) {
	var entry *models.ScoreEntry
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userRef := r.client.Collection(usersCollection).Doc(userID)
		userSnap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
			}
			return fmt.Errorf("failed to get user '%s': %w", userID, err)
		}
		var user models.User
		if err := userSnap.DataTo(&user); err != nil {
			return fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
		}
		if user.LastCompletedDate == day {
			return fmt.Errorf("user '%s' on %s: %w", userID, day, ErrAlreadyCompleted)
		}

		quizRef := r.client.Collection(quizzesCollection).Doc(quizID)
		if _, err := tx.Get(quizRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("quiz '%s': %w", quizID, ErrQuizNotFound)
			}
			return fmt.Errorf("failed to get quiz '%s': %w", quizID, err)
		}

		// Read the squad before any write; a stale reference (squad deleted
		// out from under the user) is self-healed below.
		var squadRef *firestore.DocumentRef
		var squadScore int64
		squadStale := false
		if user.SquadID != "" {
			squadRef = r.client.Collection(squadsCollection).Doc(user.SquadID)
			squadSnap, err := tx.Get(squadRef)
			if err != nil {
				if status.Code(err) != codes.NotFound {
					return fmt.Errorf("failed to get squad '%s': %w", user.SquadID, err)
				}
				squadStale = true
			} else {
				squad, err := squadFromSnap(squadSnap)
				if err != nil {
					return err
				}
				squadScore = squad.TotalScore
			}
		}

		userUpdates := []firestore.Update{
			{Path: "totalScore", Value: user.TotalScore + score},
			{Path: "lastCompletedDate", Value: day},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if squadStale {
			userUpdates = append(userUpdates, firestore.Update{Path: "squadId", Value: firestore.Delete})
		}
		if err := tx.Update(userRef, userUpdates); err != nil {
			return fmt.Errorf("failed to update user '%s': %w", userID, err)
		}

		if squadRef != nil && !squadStale {
			if err := tx.Update(squadRef, []firestore.Update{
				{Path: "totalScore", Value: squadScore + score},
				{Path: "updatedAt", Value: firestore.ServerTimestamp},
			}); err != nil {
				return fmt.Errorf("failed to update squad score: %w", err)
			}
		}

		squadID := user.SquadID
		if squadStale {
			squadID = ""
		}
		entry = &models.ScoreEntry{
			UserID:      userID,
			DisplayName: user.DisplayName,
			SquadID:     squadID,
			QuizID:      quizID,
			Score:       score,
			Day:         day,
		}
		entryRef := r.client.Collection(scoresCollection).NewDoc()
		entry.ID = entryRef.ID
		return tx.Create(entryRef, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TopByScore returns up to limit users ordered by total score descending.
func (r *firestoreUserRepository) TopByScore(ctx context.Context, limit int) ([]*models.User, error) {
	iter := r.client.Collection(usersCollection).
		OrderBy("totalScore", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users for leaderboard: %w", err)
		}
		var user models.User
		if err := doc.DataTo(&user); err != nil {
			log.Printf("Error decoding user (ID: %s) for leaderboard: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		user.ID = doc.Ref.ID
		users = append(users, &user)
	}
	return users, nil
}

package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"squadquiz-backend-go/internal/models"
)

const scoresCollection = "scores"

// firestoreScoreRepository implements the ScoreRepository interface using
// Firestore. Score entries are written through the quiz-completion
// transaction in the user repository; this repository is the read side.
type firestoreScoreRepository struct {
	client *firestore.Client
}

// NewFirestoreScoreRepository creates a new instance of firestoreScoreRepository.
func NewFirestoreScoreRepository(client *firestore.Client) ScoreRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ScoreRepository.")
	}
	return &firestoreScoreRepository{client: client}
}

// ListByUser returns the user's score entries, most recent first.
func (r *firestoreScoreRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ScoreEntry, error) {
	query := r.client.Collection(scoresCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, query)
}

// ListByDay returns the score entries recorded on a UTC calendar day,
// highest score first.
func (r *firestoreScoreRepository) ListByDay(ctx context.Context, day string, limit int) ([]*models.ScoreEntry, error) {
	query := r.client.Collection(scoresCollection).
		Where("day", "==", day).
		OrderBy("score", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, query)
}

func (r *firestoreScoreRepository) collect(ctx context.Context, query firestore.Query) ([]*models.ScoreEntry, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var entries []*models.ScoreEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate score entries: %w", err)
		}
		var entry models.ScoreEntry
		if err := doc.DataTo(&entry); err != nil {
			log.Printf("Error decoding score entry (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		entry.ID = doc.Ref.ID
		entries = append(entries, &entry)
	}
	return entries, nil
}

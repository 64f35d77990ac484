package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"squadquiz-backend-go/internal/models"
)

const squadsCollection = "squads"

// firestoreSquadRepository implements the SquadRepository interface using Firestore.
type firestoreSquadRepository struct {
	client *firestore.Client
}

// NewFirestoreSquadRepository creates a new instance of firestoreSquadRepository.
func NewFirestoreSquadRepository(client *firestore.Client) SquadRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SquadRepository.")
	}
	return &firestoreSquadRepository{client: client}
}

// squadFromSnap decodes a squad document, normalizing the historical field
// shapes in one place: members stored as an array or as a map of booleans,
// the name under "name" or "squadName", and "lastUpdated" as the old name
// for "updatedAt". Business logic above this boundary only ever sees the
// canonical shape.
func squadFromSnap(snap *firestore.DocumentSnapshot) (*models.Squad, error) {
	data := snap.Data()
	if data == nil {
		return nil, fmt.Errorf("squad document '%s' has no data", snap.Ref.ID)
	}

	squad := &models.Squad{ID: snap.Ref.ID}

	if v, ok := data["name"].(string); ok {
		squad.Name = v
	} else if v, ok := data["squadName"].(string); ok {
		squad.Name = v
	}
	if v, ok := data["nameLower"].(string); ok {
		squad.NameLower = v
	} else {
		squad.NameLower = strings.ToLower(squad.Name)
	}
	if v, ok := data["ownerId"].(string); ok {
		squad.OwnerID = v
	}
	if v, ok := data["bio"].(string); ok {
		squad.Bio = v
	}
	if v, ok := data["image"].(string); ok {
		squad.Image = v
	}

	switch members := data["members"].(type) {
	case []interface{}:
		for _, m := range members {
			if id, ok := m.(string); ok {
				squad.Members = append(squad.Members, id)
			}
		}
	case map[string]interface{}:
		// Legacy shape: member IDs as keys of a boolean map.
		for id, present := range members {
			if b, ok := present.(bool); ok && b {
				squad.Members = append(squad.Members, id)
			}
		}
		sort.Strings(squad.Members)
	}

	// Squads written before ownerId existed have the founder first in the
	// members array.
	if squad.OwnerID == "" && len(squad.Members) > 0 {
		squad.OwnerID = squad.Members[0]
	}

	switch v := data["totalScore"].(type) {
	case int64:
		squad.TotalScore = v
	case float64:
		squad.TotalScore = int64(v)
	}

	if v, ok := data["createdAt"].(time.Time); ok {
		squad.CreatedAt = v
	}
	if v, ok := data["updatedAt"].(time.Time); ok {
		squad.UpdatedAt = v
	} else if v, ok := data["lastUpdated"].(time.Time); ok {
		squad.UpdatedAt = v
	}

	return squad, nil
}

// getSquadSnap fetches a squad document inside a transaction, retrying once
// with the normalized ID when the raw ID is in the legacy format.
func (r *firestoreSquadRepository) getSquadSnap(tx *firestore.Transaction, squadID string) (*firestore.DocumentSnapshot, error) {
	snap, err := tx.Get(r.client.Collection(squadsCollection).Doc(squadID))
	if err == nil {
		return snap, nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, err
	}
	if normalized, ok := normalizeLegacySquadID(squadID); ok {
		snap, err = tx.Get(r.client.Collection(squadsCollection).Doc(normalized))
		if err == nil {
			return snap, nil
		}
		if status.Code(err) != codes.NotFound {
			return nil, err
		}
	}
	return nil, fmt.Errorf("squad '%s': %w", squadID, ErrSquadNotFound)
}

// nameTaken reports whether a squad other than excludeID already uses the
// lowercased name. Runs inside the transaction so a concurrent create with
// the same name aborts one of the two.
func (r *firestoreSquadRepository) nameTaken(tx *firestore.Transaction, nameLower, excludeID string) (bool, error) {
	query := r.client.Collection(squadsCollection).Where("nameLower", "==", nameLower).Limit(2)
	docs, err := tx.Documents(query).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to query squads by name: %w", err)
	}
	for _, doc := range docs {
		if doc.Ref.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// CreateWithFounder creates the squad document and points the founder's user
// document at it in a single transaction. The transaction re-validates name
// uniqueness and the founder's unaffiliated state against fresh reads, so
// there is no compensating-rollback path: either both documents are written
// or neither is.
func (r *firestoreSquadRepository) CreateWithFounder(ctx context.Context, squad *models.Squad, founderID string) error {
	if founderID == "" {
		return errors.New("founderID cannot be empty for CreateWithFounder operation")
	}
	squad.ID = newSquadID()
	squad.NameLower = strings.ToLower(squad.Name)
	squad.OwnerID = founderID
	squad.Members = []string{founderID}
	squad.TotalScore = 0

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := r.nameTaken(tx, squad.NameLower, "")
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("squad name '%s': %w", squad.Name, ErrNameTaken)
		}

		userRef := r.client.Collection(usersCollection).Doc(founderID)
		userSnap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("founder '%s': %w", founderID, ErrUserNotFound)
			}
			return fmt.Errorf("failed to get founder '%s': %w", founderID, err)
		}
		if sid, err := userSnap.DataAt("squadId"); err == nil {
			if s, ok := sid.(string); ok && s != "" {
				return fmt.Errorf("founder '%s': %w", founderID, ErrAlreadyInSquad)
			}
		}

		squadRef := r.client.Collection(squadsCollection).Doc(squad.ID)
		if err := tx.Create(squadRef, squad); err != nil {
			return fmt.Errorf("failed to create squad '%s': %w", squad.ID, err)
		}
		return tx.Update(userRef, []firestore.Update{
			{Path: "squadId", Value: squad.ID},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

// GetByID retrieves a squad by ID, falling back to the normalized legacy ID.
func (r *firestoreSquadRepository) GetByID(ctx context.Context, squadID string) (*models.Squad, error) {
	if squadID == "" {
		return nil, errors.New("squadID cannot be empty for GetByID operation")
	}
	snap, err := r.client.Collection(squadsCollection).Doc(squadID).Get(ctx)
	if err != nil && status.Code(err) == codes.NotFound {
		if normalized, ok := normalizeLegacySquadID(squadID); ok {
			snap, err = r.client.Collection(squadsCollection).Doc(normalized).Get(ctx)
		}
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("squad '%s': %w", squadID, ErrSquadNotFound)
		}
		return nil, fmt.Errorf("failed to get squad '%s': %w", squadID, err)
	}
	return squadFromSnap(snap)
}

// Search returns up to limit squads whose name contains term, matched
// case-insensitively. Firestore cannot express substring matches, so the
// repository walks the collection in nameLower order and filters; squad
// counts are small enough that this stays cheap, and the ordering keeps
// repeated identical queries stable.
func (r *firestoreSquadRepository) Search(ctx context.Context, term string, limit int) ([]*models.Squad, error) {
	needle := strings.ToLower(strings.TrimSpace(term))

	iter := r.client.Collection(squadsCollection).OrderBy("nameLower", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var squads []*models.Squad
	for len(squads) < limit {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate squads for search: %w", err)
		}
		squad, err := squadFromSnap(doc)
		if err != nil {
			log.Printf("Error decoding squad (ID: %s) during search: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		if strings.Contains(squad.NameLower, needle) {
			squads = append(squads, squad)
		}
	}
	return squads, nil
}

// UpdateInfo merges the provided display fields after re-verifying ownership
// (and, for a name change, uniqueness) inside the transaction.
func (r *firestoreSquadRepository) UpdateInfo(ctx context.Context, squadID, requestorID string, name, bio, image *string) (*models.Squad, error) {
	var updated *models.Squad
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := r.getSquadSnap(tx, squadID)
		if err != nil {
			return err
		}
		squad, err := squadFromSnap(snap)
		if err != nil {
			return err
		}
		if squad.OwnerID != requestorID {
			return fmt.Errorf("user '%s' on squad '%s': %w", requestorID, squad.ID, ErrNotOwner)
		}

		updates := []firestore.Update{
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if name != nil {
			newLower := strings.ToLower(*name)
			if newLower != squad.NameLower {
				taken, err := r.nameTaken(tx, newLower, snap.Ref.ID)
				if err != nil {
					return err
				}
				if taken {
					return fmt.Errorf("squad name '%s': %w", *name, ErrNameTaken)
				}
			}
			squad.Name = *name
			squad.NameLower = newLower
			updates = append(updates,
				firestore.Update{Path: "name", Value: *name},
				firestore.Update{Path: "nameLower", Value: newLower})
		}
		if bio != nil {
			squad.Bio = *bio
			updates = append(updates, firestore.Update{Path: "bio", Value: *bio})
		}
		if image != nil {
			squad.Image = *image
			updates = append(updates, firestore.Update{Path: "image", Value: *image})
		}

		updated = squad
		return tx.Update(snap.Ref, updates)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddMember adds the user to the squad and sets the user's squad reference
// in one transaction. All preconditions are validated against the state read
// inside the transaction; two users racing for the last slot cannot both win.
func (r *firestoreSquadRepository) AddMember(ctx context.Context, squadID, userID string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := r.getSquadSnap(tx, squadID)
		if err != nil {
			return err
		}
		squad, err := squadFromSnap(snap)
		if err != nil {
			return err
		}

		userRef := r.client.Collection(usersCollection).Doc(userID)
		userSnap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user '%s': %w", userID, ErrUserNotFound)
			}
			return fmt.Errorf("failed to get user '%s': %w", userID, err)
		}

		if squad.HasMember(userID) {
			return fmt.Errorf("user '%s' in squad '%s': %w", userID, squad.ID, ErrAlreadyMember)
		}
		if sid, err := userSnap.DataAt("squadId"); err == nil {
			if s, ok := sid.(string); ok && s != "" {
				return fmt.Errorf("user '%s': %w", userID, ErrAlreadyInSquad)
			}
		}
		if len(squad.Members) >= models.MaxSquadMembers {
			return fmt.Errorf("squad '%s': %w", squad.ID, ErrSquadFull)
		}

		if err := tx.Update(snap.Ref, []firestore.Update{
			{Path: "members", Value: firestore.ArrayUnion(userID)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}); err != nil {
			return fmt.Errorf("failed to add member to squad '%s': %w", squad.ID, err)
		}
		return tx.Update(userRef, []firestore.Update{
			{Path: "squadId", Value: squad.ID},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

// RemoveMember removes the user from the squad and clears the user's squad
// reference in one transaction. The owner can never be removed this way.
func (r *firestoreSquadRepository) RemoveMember(ctx context.Context, squadID, userID string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := r.getSquadSnap(tx, squadID)
		if err != nil {
			return err
		}
		squad, err := squadFromSnap(snap)
		if err != nil {
			return err
		}

		if !squad.HasMember(userID) {
			return fmt.Errorf("user '%s' in squad '%s': %w", userID, squad.ID, ErrNotMember)
		}
		if squad.OwnerID == userID {
			return fmt.Errorf("user '%s' owns squad '%s': %w", userID, squad.ID, ErrOwnerCannotLeave)
		}

		if err := tx.Update(snap.Ref, []firestore.Update{
			{Path: "members", Value: firestore.ArrayRemove(userID)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}); err != nil {
			return fmt.Errorf("failed to remove member from squad '%s': %w", squad.ID, err)
		}
		userRef := r.client.Collection(usersCollection).Doc(userID)
		return tx.Update(userRef, []firestore.Update{
			{Path: "squadId", Value: firestore.Delete},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

// DeleteWithMembers deletes the squad and clears the squad reference of
// every member that still points at it, all in one transaction. A member
// that raced into a different squad between the read and the commit keeps
// its new reference untouched.
func (r *firestoreSquadRepository) DeleteWithMembers(ctx context.Context, squadID, requestorID string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := r.getSquadSnap(tx, squadID)
		if err != nil {
			return err
		}
		squad, err := squadFromSnap(snap)
		if err != nil {
			return err
		}
		if squad.OwnerID != requestorID {
			return fmt.Errorf("user '%s' on squad '%s': %w", requestorID, squad.ID, ErrNotOwner)
		}

		// All reads happen before any write in a Firestore transaction, so
		// collect the member refs to clear first.
		var toClear []*firestore.DocumentRef
		for _, memberID := range squad.Members {
			memberRef := r.client.Collection(usersCollection).Doc(memberID)
			memberSnap, err := tx.Get(memberRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					continue
				}
				return fmt.Errorf("failed to get member '%s': %w", memberID, err)
			}
			if sid, err := memberSnap.DataAt("squadId"); err == nil {
				if s, ok := sid.(string); ok && s == squad.ID {
					toClear = append(toClear, memberRef)
				}
			}
		}

		for _, memberRef := range toClear {
			if err := tx.Update(memberRef, []firestore.Update{
				{Path: "squadId", Value: firestore.Delete},
				{Path: "updatedAt", Value: firestore.ServerTimestamp},
			}); err != nil {
				return fmt.Errorf("failed to clear member reference: %w", err)
			}
		}
		return tx.Delete(snap.Ref)
	})
}

// TopByScore returns up to limit squads ordered by total score descending.
func (r *firestoreSquadRepository) TopByScore(ctx context.Context, limit int) ([]*models.Squad, error) {
	iter := r.client.Collection(squadsCollection).
		OrderBy("totalScore", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var squads []*models.Squad
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate squads for leaderboard: %w", err)
		}
		squad, err := squadFromSnap(doc)
		if err != nil {
			log.Printf("Error decoding squad (ID: %s) for leaderboard: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		squads = append(squads, squad)
	}
	return squads, nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/models"
)

// Custom errors for the SquadService
var (
	ErrSquadNotFound    = errors.New("squad not found")
	ErrSquadNameTaken   = errors.New("squad name is already taken")
	ErrSquadFull        = errors.New("squad is already at maximum capacity")
	ErrAlreadyMember    = errors.New("user is already a member of this squad")
	ErrAlreadyInSquad   = errors.New("user already belongs to a squad")
	ErrNotAMember       = errors.New("user is not a member of this squad")
	ErrOwnerCannotLeave = errors.New("squad owner cannot leave; delete the squad instead")
	ErrNotSquadOwner    = errors.New("user does not own this squad")
	ErrInvalidSquadName = fmt.Errorf("squad name must be between %d and %d characters", models.MinSquadNameLen, models.MaxSquadNameLen)
)

const maxSearchResults = 10

// squadService implements the SquadService interface.
type squadService struct {
	squadRepo db.SquadRepository
	userRepo  db.UserRepository
}

// NewSquadService creates a new SquadService instance.
func NewSquadService(sr db.SquadRepository, ur db.UserRepository) SquadService {
	return &squadService{
		squadRepo: sr,
		userRepo:  ur,
	}
}

// translateSquadRepoErr converts repository sentinels into service-level errors
// so handlers never need to import the db package.
func translateSquadRepoErr(err error) error {
	switch {
	case errors.Is(err, db.ErrSquadNotFound):
		return fmt.Errorf("%w: %v", ErrSquadNotFound, err)
	case errors.Is(err, db.ErrUserNotFound):
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	case errors.Is(err, db.ErrNameTaken):
		return fmt.Errorf("%w: %v", ErrSquadNameTaken, err)
	case errors.Is(err, db.ErrSquadFull):
		return fmt.Errorf("%w: %v", ErrSquadFull, err)
	case errors.Is(err, db.ErrAlreadyMember):
		return fmt.Errorf("%w: %v", ErrAlreadyMember, err)
	case errors.Is(err, db.ErrAlreadyInSquad):
		return fmt.Errorf("%w: %v", ErrAlreadyInSquad, err)
	case errors.Is(err, db.ErrNotMember):
		return fmt.Errorf("%w: %v", ErrNotAMember, err)
	case errors.Is(err, db.ErrOwnerCannotLeave):
		return fmt.Errorf("%w: %v", ErrOwnerCannotLeave, err)
	case errors.Is(err, db.ErrNotOwner):
		return fmt.Errorf("%w: %v", ErrNotSquadOwner, err)
	default:
		return err
	}
}

// validateSquadName trims the candidate name and checks its length.
// Length is counted in runes so multi-byte names are not penalized.
func validateSquadName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < models.MinSquadNameLen || n > models.MaxSquadNameLen {
		return "", ErrInvalidSquadName
	}
	return trimmed, nil
}

// CreateSquad creates a new squad with the requesting user as owner and sole member.
func (s *squadService) CreateSquad(ctx context.Context, userID string, req models.CreateSquadRequest) (*models.Squad, error) {
	if s.squadRepo == nil || s.userRepo == nil {
		return nil, errors.New("squadService: component not initialized")
	}

	name, err := validateSquadName(req.Name)
	if err != nil {
		return nil, err
	}

	newSquad := &models.Squad{
		Name:  name,
		Bio:   strings.TrimSpace(req.Bio),
		Image: strings.TrimSpace(req.Image),
	}
	if err := s.squadRepo.CreateWithFounder(ctx, newSquad, userID); err != nil {
		return nil, translateSquadRepoErr(err)
	}
	return newSquad, nil
}

// GetSquadByID retrieves a single squad.
func (s *squadService) GetSquadByID(ctx context.Context, squadID string) (*models.Squad, error) {
	if s.squadRepo == nil {
		return nil, errors.New("squadService: squadRepo not initialized")
	}
	squad, err := s.squadRepo.GetByID(ctx, squadID)
	if err != nil {
		return nil, translateSquadRepoErr(err)
	}
	return squad, nil
}

// GetSquadForUser resolves the squad the user currently belongs to.
// A user document can carry a reference to a squad that was deleted out from
// under it; in that case the stale reference is cleared and (nil, nil) is
// returned, so callers see a consistent "no squad" state.
func (s *squadService) GetSquadForUser(ctx context.Context, userID string) (*models.Squad, error) {
	if s.squadRepo == nil || s.userRepo == nil {
		return nil, errors.New("squadService: component not initialized")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user '%s' from repository: %w", userID, err)
	}
	if user.SquadID == "" {
		return nil, nil
	}

	squad, err := s.squadRepo.GetByID(ctx, user.SquadID)
	if err != nil {
		if errors.Is(err, db.ErrSquadNotFound) {
			if healErr := s.userRepo.ClearSquadRef(ctx, userID, user.SquadID); healErr != nil {
				fmt.Printf("Warning: failed to clear stale squad reference '%s' for user '%s': %v\n", user.SquadID, userID, healErr)
			}
			return nil, nil
		}
		return nil, translateSquadRepoErr(err)
	}
	return squad, nil
}

// SearchSquads performs a case-insensitive substring search over squad names.
func (s *squadService) SearchSquads(ctx context.Context, term string, limit int) ([]*models.Squad, error) {
	if s.squadRepo == nil {
		return nil, errors.New("squadService: squadRepo not initialized")
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return []*models.Squad{}, nil
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	squads, err := s.squadRepo.Search(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search squads for term '%s': %w", term, err)
	}
	if squads == nil {
		squads = []*models.Squad{}
	}
	return squads, nil
}

// UpdateSquad updates a squad's name, bio, or image. Only the owner may do this.
func (s *squadService) UpdateSquad(ctx context.Context, userID, squadID string, req models.UpdateSquadRequest) (*models.Squad, error) {
	if s.squadRepo == nil {
		return nil, errors.New("squadService: squadRepo not initialized")
	}

	var name *string
	if req.Name != nil {
		validated, err := validateSquadName(*req.Name)
		if err != nil {
			return nil, err
		}
		name = &validated
	}

	squad, err := s.squadRepo.UpdateInfo(ctx, squadID, userID, name, req.Bio, req.Image)
	if err != nil {
		return nil, translateSquadRepoErr(err)
	}
	return squad, nil
}

// JoinSquad adds the user to a squad and returns the updated squad.
func (s *squadService) JoinSquad(ctx context.Context, userID, squadID string) (*models.Squad, error) {
	if s.squadRepo == nil {
		return nil, errors.New("squadService: squadRepo not initialized")
	}
	if err := s.squadRepo.AddMember(ctx, squadID, userID); err != nil {
		return nil, translateSquadRepoErr(err)
	}
	squad, err := s.squadRepo.GetByID(ctx, squadID)
	if err != nil {
		return nil, translateSquadRepoErr(err)
	}
	return squad, nil
}

// LeaveSquad removes the user from a squad. The owner cannot leave their own squad.
func (s *squadService) LeaveSquad(ctx context.Context, userID, squadID string) error {
	if s.squadRepo == nil {
		return errors.New("squadService: squadRepo not initialized")
	}
	if err := s.squadRepo.RemoveMember(ctx, squadID, userID); err != nil {
		return translateSquadRepoErr(err)
	}
	return nil
}

// DeleteSquad removes a squad and detaches every member. Owner only.
func (s *squadService) DeleteSquad(ctx context.Context, userID, squadID string) error {
	if s.squadRepo == nil {
		return errors.New("squadService: squadRepo not initialized")
	}
	if err := s.squadRepo.DeleteWithMembers(ctx, squadID, userID); err != nil {
		return translateSquadRepoErr(err)
	}
	return nil
}

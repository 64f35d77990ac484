package db

import (
	"errors"
	"fmt"
)

// ErrNotFound is the base error for any document that does not exist.
var ErrNotFound = errors.New("document not found")

// Entity-specific not-found errors. Each wraps ErrNotFound so callers can
// match either the broad or the narrow condition with errors.Is.
var (
	ErrUserNotFound  = fmt.Errorf("user: %w", ErrNotFound)
	ErrSquadNotFound = fmt.Errorf("squad: %w", ErrNotFound)
	ErrQuizNotFound  = fmt.Errorf("quiz: %w", ErrNotFound)
)

// Membership-state errors surfaced by the transactional squad operations.
// These are validated against freshly-read state inside the transaction,
// never against state the caller read earlier.
var (
	ErrNameTaken        = errors.New("squad name already taken")
	ErrSquadFull        = errors.New("squad is full")
	ErrAlreadyMember    = errors.New("user is already a member of this squad")
	ErrAlreadyInSquad   = errors.New("user already belongs to a squad")
	ErrNotMember        = errors.New("user is not a member of this squad")
	ErrNotOwner         = errors.New("user is not the squad owner")
	ErrOwnerCannotLeave = errors.New("squad owner cannot leave the squad")
)

// ErrAlreadyCompleted is returned when a quiz result is recorded twice for
// the same user on the same calendar day.
var ErrAlreadyCompleted = errors.New("daily quiz already completed")

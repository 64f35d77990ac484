package models

import "time"

// Role describes a user's relationship to their squad. It is derived from
// membership state, never stored: a user with no SquadID has RoleNone, the
// squad owner has RoleLeader, everyone else in the members list has RoleMember.
type Role string

const (
	RoleNone   Role = "none"
	RoleMember Role = "member"
	RoleLeader Role = "leader"
)

// User represents a user in the system.
type User struct {
	ID          string `json:"id" firestore:"-"` // Firebase Auth UID, used as the document ID
	Email       string `json:"email" firestore:"email"`
	DisplayName string `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`

	// SquadID references the squad the user belongs to, or is empty.
	// A user belongs to at most one squad at a time.
	SquadID string `json:"squadId,omitempty" firestore:"squadId,omitempty"`

	// TotalScore accumulates points from completed daily quizzes.
	TotalScore int64 `json:"totalScore" firestore:"totalScore"`

	// LastCompletedDate is the UTC calendar day (YYYY-MM-DD) of the user's
	// most recent quiz completion. Empty if the user has never completed one.
	LastCompletedDate string `json:"lastCompletedDate,omitempty" firestore:"lastCompletedDate,omitempty"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

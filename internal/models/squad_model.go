package models

import "time"

const (
	// MaxSquadMembers is the hard cap on squad size, owner included.
	MaxSquadMembers = 4

	// MinSquadNameLen and MaxSquadNameLen bound the trimmed squad name.
	MinSquadNameLen = 3
	MaxSquadNameLen = 30
)

// Squad is a team of 1–4 users with exactly one leader (the owner).
// The owner is always present in Members and can only stop being the
// owner by deleting the squad.
type Squad struct {
	ID   string `json:"id" firestore:"-"` // Document ID, minted as squad_<unixms>_<rand>
	Name string `json:"name" firestore:"name"`

	// NameLower is the lowercased name, kept for the uniqueness check at
	// creation and case-insensitive search. Not exposed over the API.
	NameLower string `json:"-" firestore:"nameLower"`

	OwnerID string   `json:"ownerId" firestore:"ownerId"`
	Members []string `json:"members" firestore:"members"`

	TotalScore int64  `json:"totalScore" firestore:"totalScore"`
	Bio        string `json:"bio,omitempty" firestore:"bio,omitempty"`
	Image      string `json:"image,omitempty" firestore:"image,omitempty"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// HasMember reports whether userID is in the members list.
func (s *Squad) HasMember(userID string) bool {
	for _, m := range s.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// RoleOf derives the user's role from membership state.
func (s *Squad) RoleOf(userID string) Role {
	if s == nil || !s.HasMember(userID) {
		return RoleNone
	}
	if s.OwnerID == userID {
		return RoleLeader
	}
	return RoleMember
}

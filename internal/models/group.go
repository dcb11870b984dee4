package models

import (
	"slices"
	"time"
)

// Group represents a set of members sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id" bson:"_id"`

	// Name is the display name of the group (e.g., "Goa Trip 2026").
	Name string `json:"name" bson:"name"`

	// JoinCode is the 5-digit code other users enter to join.
	// Unique among existing groups.
	JoinCode string `json:"join_code" bson:"join_code"`

	// CreatedBy is the uid of the member who created the group.
	CreatedBy string `json:"created_by" bson:"created_by"`

	// Members holds member uids in the order they joined.
	// The creator is always the first entry. Members are never removed.
	Members []string `json:"members" bson:"members"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HasMember reports whether uid is in the group.
func (g *Group) HasMember(uid string) bool {
	return slices.Contains(g.Members, uid)
}

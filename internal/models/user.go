package models

import "time"

// DefaultUserName is used when the identity provider supplies no display name.
const DefaultUserName = "Anonymous"

// User represents a member profile.
//
// Users are created the first time someone signs in and are never
// updated afterwards.
type User struct {
	// UID is the stable id from the identity provider.
	UID string `json:"uid" bson:"_id"`

	// Name is the display name shown in rosters.
	Name string `json:"name" bson:"name"`

	// Email is the user's email address.
	Email string `json:"email" bson:"email"`

	// PhotoURL is the profile picture, may be empty.
	PhotoURL string `json:"photo_url" bson:"photo_url"`

	// CreatedAt is when the profile was first stored.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Credential stores a local password identity.
// Only the password identity provider uses it; Google users have none.
type Credential struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

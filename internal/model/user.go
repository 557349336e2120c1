package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RoleUser is the default role assigned to new accounts.
const RoleUser = "user"

// User represents an account in the note-taking system.
type User struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Email          string        `bson:"email"`
	PasswordHash   string        `bson:"password_hash"`
	Verified       bool          `bson:"verified"`
	ProfilePicture string        `bson:"profile_picture,omitempty"`
	Role           string        `bson:"role"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

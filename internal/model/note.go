package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Note represents a personal note owned by a single user.
type Note struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Title     string        `bson:"title"`
	Body      string        `bson:"body"`
	Tags      []string      `bson:"tags,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

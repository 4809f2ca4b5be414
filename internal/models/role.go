package models

import "time"

// Role is an access role plus the application names granted to it.
// The _id is minted from the shared "roles" sequence.
type Role struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	Applications []string  `bson:"applications" json:"applications"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

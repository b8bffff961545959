// Package models contains data structures for the application's domain entities.
package models

import (
	"time"
)

// User represents a registered voice-network user.
// Users are never hard-deleted; the username is mutable but globally unique.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	BioRef    string    `json:"-"`
	MusicRef  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	// Resolved blob URLs, filled at response time; not persisted.
	BioURL   string `gorm:"-" json:"bio_url,omitempty"`
	MusicURL string `gorm:"-" json:"music_url,omitempty"`
}

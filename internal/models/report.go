package models

import (
	"time"
)

// Report is a user complaint against a post. Reports are append-only and
// survive the reported post (the post id works as a tombstone reference).
type Report struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	PostID     string    `gorm:"size:36;index;not null" json:"post_id"`
	ReporterID string    `gorm:"size:36;index;not null" json:"reporter_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// Post is a top-level audio submission. Listens and DeleteVotes are
// monotonic counters; each is mutated only in the same transaction as the
// engagement record that justifies it.
type Post struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID      string    `gorm:"size:36;index;not null" json:"author_id"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"author"`
	AudioRef      string    `gorm:"not null" json:"-"`
	Listens       int       `gorm:"not null;default:0" json:"listens"`
	DeleteVotes   int       `gorm:"not null;default:0" json:"delete_votes"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`

	// AudioURL is the resolved blob URL, filled at response time.
	AudioURL string `gorm:"-" json:"audio_url"`
	// UserListened and UserVotedDelete reflect the requesting user's
	// own engagement, filled at response time.
	UserListened    bool `gorm:"-" json:"user_listened"`
	UserVotedDelete bool `gorm:"-" json:"user_voted_delete"`
}

package models

import (
	"time"
)

// SuppressionThreshold is the thumbs-down count at which a comment is
// hidden from normal display. Suppression is recomputed from the live
// counter on every read and never persisted.
const SuppressionThreshold = 5

// Comment is an audio reply attached to exactly one post. It is destroyed
// together with its parent post during a moderation cascade.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	PostID     string    `gorm:"size:36;index;not null" json:"post_id"`
	AuthorID   string    `gorm:"size:36;index;not null" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	AudioRef   string    `gorm:"not null" json:"-"`
	ThumbsDown int       `gorm:"not null;default:0" json:"thumbs_down"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`

	// Presentation-only fields, filled at response time.
	AudioURL        string `gorm:"-" json:"audio_url"`
	Suppressed      bool   `gorm:"-" json:"suppressed"`
	UserThumbedDown bool   `gorm:"-" json:"user_thumbed_down"`
}

// IsSuppressed reports whether the comment is past the community
// thumbs-down threshold. The row stays fully present either way.
func (c *Comment) IsSuppressed() bool {
	return c.ThumbsDown >= SuppressionThreshold
}

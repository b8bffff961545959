package models

import (
	"time"
)

// ActionKind discriminates the once-per-actor engagement actions.
type ActionKind string

const (
	// ActionListen is the one-time per-actor listen event on a post.
	ActionListen ActionKind = "listen"
	// ActionDeleteVote is the one-time per-actor delete-vote on a post.
	ActionDeleteVote ActionKind = "delete_vote"
	// ActionThumbsDown is the toggleable per-actor downvote on a comment.
	ActionThumbsDown ActionKind = "thumbs_down"
)

// Engagement is one ledger entry. The composite primary key enforces the
// at-most-one-record-per-(actor, target, kind) invariant in the schema
// instead of by string-key convention. Existence of the row is the state.
//
// Listen and delete-vote rows are never removed; rows referencing a
// cascade-deleted post may remain as tombstones. Thumbs-down rows are
// added and removed by the toggle and are the single source of truth for
// the comment's counter.
type Engagement struct {
	ActorID   string     `gorm:"primaryKey;size:36" json:"actor_id"`
	TargetID  string     `gorm:"primaryKey;size:36" json:"target_id"`
	Kind      ActionKind `gorm:"primaryKey;size:16" json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
}

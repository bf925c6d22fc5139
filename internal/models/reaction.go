package models

import (
	"time"
)

// ReactionKind discriminates likes from dislikes.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Reaction records a user's like or dislike on a post.
//
// The composite unique index allows at most one row per (user, post), which
// enforces like/dislike mutual exclusivity at the schema level. Switching
// sides is a single upsert, never a read-modify-write of the post aggregate.
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;uniqueIndex:idx_reaction_user_post" json:"user_id"`
	PostID    uint         `gorm:"not null;uniqueIndex:idx_reaction_user_post" json:"post_id"`
	Kind      ReactionKind `gorm:"type:varchar(8);not null" json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a single feed entry owned by exactly one user.
//
// Posts are hard-deleted: removing a post removes its comments and reactions
// in the same transaction.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"imageUrl"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"author"`

	// Counts are not persisted; computed at query time.
	LikesCount    int `gorm:"->" json:"likesCount"`
	DislikesCount int `gorm:"->" json:"dislikesCount"`
	CommentsCount int `gorm:"->" json:"commentsCount"`
	// Liked/Disliked indicate the requesting user's reaction (computed).
	Liked    bool `gorm:"->" json:"liked"`
	Disliked bool `gorm:"->" json:"disliked"`

	// LikerIDs/DislikerIDs are populated on single-post reads only.
	LikerIDs    []uint `gorm:"-" json:"likes,omitempty"`
	DislikerIDs []uint `gorm:"-" json:"dislikes,omitempty"`

	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxPostContentLen bounds the post body, matching the client-side limit.
const MaxPostContentLen = 2000

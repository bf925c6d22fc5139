package models

import (
	"time"
)

// Comment represents one reply on a post. Comments are append-only: there is
// no update or delete endpoint, and list order is arrival order.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account in the PublicFeed application.
//
// Credential material (password hash, OTP hash, reset token hash) is never
// serialized. An account starts unverified and flips to verified exactly once
// via a matching, unexpired OTP.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"not null" json:"firstName"`
	LastName  string `gorm:"not null" json:"lastName"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`

	IsVerified bool `gorm:"not null;default:false" json:"isVerified"`

	// OTP verification (write-mostly, cleared after successful verify)
	OTPHash      string     `gorm:"column:otp_hash" json:"-"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at" json:"-"`

	// Password reset (cleared after successful reset)
	ResetTokenHash string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	Bio    string `json:"bio"`
	Avatar string `json:"avatarUrl"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// PublicProfile is the trimmed user payload embedded in auth responses.
type PublicProfile struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatarUrl"`
}

// Public returns the minimal profile view of the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
	}
}

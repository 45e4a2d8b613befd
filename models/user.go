package models

import (
	"time"

	"gorm.io/gorm"
)

// User mirrors an identity issued by the session provider. Rows are refreshed from token claims
// whenever the user writes something, so comments can be rendered with author metadata.
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username  string    `gorm:"size:64;not null" json:"username"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	Signature string    `gorm:"size:255" json:"signature"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

package models

import (
	"time"

	"github.com/go-authgate/appgrant/internal/core"
)

var _ core.Account = (*User)(nil)

// User is the minimal account record apps are owned by and bound to.
type User struct {
	ID       string `gorm:"primaryKey;size:36"`
	Username string `gorm:"uniqueIndex;not null"`
	Nickname string
	Avatar   string // Avatar URL

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountID returns the user's primary identifier.
func (u *User) AccountID() string {
	return u.ID
}

// Render returns the public-safe representation of the user.
func (u *User) Render() map[string]any {
	return map[string]any{
		"user_id":  u.ID,
		"username": u.Username,
		"nickname": u.Nickname,
		"avatar":   u.Avatar,
	}
}

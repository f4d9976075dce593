package models

import "time"

// UserAppIDLen is the length of the external relation handle.
const UserAppIDLen = 16

// UserApp records the relation between one user and one app.
// There is at most one record per (UserID, AppID) pair; the row outlives unbinding.
type UserApp struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	// Relations (composite unique index ensures one row per user+app)
	UserID string `gorm:"not null;size:36;uniqueIndex:idx_user_app"`
	AppID  string `gorm:"not null;size:32;uniqueIndex:idx_user_app;index"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	App    *App   `gorm:"foreignKey:AppID;constraint:OnDelete:CASCADE"`

	// Handle given to the app; reveals neither the user id nor the app id.
	UserAppID string `gorm:"uniqueIndex;size:16;not null"`

	// LastAuthCodeID is the jti of the outstanding auth code, empty once exchanged.
	Bind             bool `gorm:"not null;default:false"`
	LastAuthCodeTime time.Time
	LastAuthCodeID   string `gorm:"size:36;not null;default:''"`

	FrequentScore   float64 `gorm:"not null;default:0"`
	ScoreUpdateTime time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserApp) TableName() string {
	return "user_apps"
}

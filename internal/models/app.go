package models

import "time"

// Field limits for App.
const (
	AppIDLen             = 32
	AppSecretLen         = 32
	AppNameMinLen        = 2
	AppNameMaxLen        = 32
	AppDescriptionMaxLen = 32
	AppRedirectURIMaxLen = 512
	AppLogoMaxLen        = 1024
)

// App is a registered third-party application.
type App struct {
	ID          string  `gorm:"primaryKey;size:32"           json:"id"`
	Name        string  `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Secret      string  `gorm:"size:32;not null"             json:"secret"`
	RedirectURI string  `gorm:"size:512;not null"            json:"redirect_uri"`
	Description string  `gorm:"size:32"                      json:"description"`
	Logo        *string `gorm:"size:1024"                    json:"logo,omitempty"`
	OwnerID     string  `gorm:"index;not null"               json:"owner_id"`
	Scopes      []Scope `gorm:"many2many:app_scopes"         json:"scopes"`

	FieldChangeTime time.Time `json:"field_change_time"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BelongsTo reports whether accountID owns the app.
func (a *App) BelongsTo(accountID string) bool {
	return accountID != "" && a.OwnerID == accountID
}

// ScopeIDs returns the ids of the app's scopes.
func (a *App) ScopeIDs() []uint {
	ids := make([]uint, 0, len(a.Scopes))
	for _, s := range a.Scopes {
		ids = append(ids, s.ID)
	}
	return ids
}

func (App) TableName() string {
	return "apps"
}

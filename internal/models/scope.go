package models

import "time"

// Field limits for Scope.
const (
	ScopeNameMaxLen        = 16
	ScopeDescriptionMaxLen = 20
)

// Scope is a named permission unit an app can request.
type Scope struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"     json:"sid"`
	Name        string `gorm:"uniqueIndex;size:16;not null" json:"name"`
	Description string `gorm:"size:20;not null"             json:"desc"`
	// Always: nil = optional, true = always granted, false = never grantable.
	Always    *bool     `json:"always"`
	CreatedAt time.Time `json:"-"`
}

// IsGrantable reports whether the scope can ever be granted to an app.
func (s *Scope) IsGrantable() bool {
	return s.Always == nil || *s.Always
}

func (Scope) TableName() string {
	return "scopes"
}

package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = gorm.ErrRecordNotFound

	// ErrDuplicatedKey is returned when an insert or update hits a unique constraint.
	// Translated from the driver-specific error because the store opens with TranslateError.
	ErrDuplicatedKey = gorm.ErrDuplicatedKey
)

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

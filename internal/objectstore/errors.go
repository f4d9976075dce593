package objectstore

import "github.com/go-authgate/appgrant/internal/core"

var (
	// ErrEmptyKey is returned when an operation is given no object key
	ErrEmptyKey = core.NewError(core.ErrValidation, "object key must not be empty")

	// ErrObjectStoreRequest is returned when the object store cannot be reached
	ErrObjectStoreRequest = core.NewError(core.ErrStorage, "object store request failed")

	// ErrObjectStoreResponse is returned when the object store answers with an unexpected status
	ErrObjectStoreResponse = core.NewError(core.ErrStorage, "object store returned an error")
)

package services

import "github.com/go-authgate/appgrant/internal/core"

// Scope catalog errors
var (
	ErrScopeNotFound         = core.NewError(core.ErrNotFound, "scope not found")
	ErrInvalidScope          = core.NewError(core.ErrValidation, "invalid scope field")
	ErrDuplicateScope        = core.NewError(core.ErrDuplicate, "scope name already exists")
	ErrRequiredScopeMissing  = core.NewError(core.ErrInvariant, "required scope missing")
	ErrCatalogNotInitialized = core.NewError(core.ErrInvariant, "scope catalog not initialized")
)

// App registry errors
var (
	ErrAppNotFound      = core.NewError(core.ErrNotFound, "app not found")
	ErrInvalidAppField  = core.NewError(core.ErrValidation, "invalid app field")
	ErrDuplicateAppName = core.NewError(core.ErrDuplicate, "app name already exists")
	ErrIDSpaceExhausted = core.NewError(core.ErrDuplicate, "could not draw a unique identifier")
	ErrNotOwner         = core.NewError(core.ErrUnauthorized, "caller does not own the app")
	ErrCreateApp        = core.NewError(core.ErrStorage, "failed to create app")
	ErrModifyApp        = core.NewError(core.ErrStorage, "failed to modify app")
	ErrDeleteApp        = core.NewError(core.ErrStorage, "failed to delete app")
	ErrLogoDelete       = core.NewError(core.ErrStorage, "failed to delete logo object")
)

// Binding errors
var (
	ErrUserNotFound    = core.NewError(core.ErrNotFound, "user not found")
	ErrUserAppNotFound = core.NewError(core.ErrNotFound, "user app relation not found")
	ErrAppUnbound      = core.NewError(core.ErrUnauthorized, "app is not bound by the user")
	ErrBindUserApp     = core.NewError(core.ErrStorage, "failed to bind user app")
	ErrBadSecret       = core.NewError(core.ErrUnauthorized, "invalid app secret")
	ErrTooManyAttempts = core.NewError(core.ErrRateLimited, "too many secret attempts")
	ErrStaleAuthCode   = core.NewError(core.ErrInvalidToken, "auth code already used or superseded")
	ErrUnexpectedShape = core.NewError(core.ErrInvariant, "unexpected record shape")
)

// Frequency ranking errors
var ErrScoreContention = core.NewError(core.ErrStorage, "score update kept losing to concurrent writers")

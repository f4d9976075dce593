package token

import "github.com/go-authgate/appgrant/internal/core"

var (
	// ErrInvalidToken indicates a bad signature, malformed input or an unexpected algorithm
	ErrInvalidToken = core.NewError(core.ErrInvalidToken, "invalid token")

	// ErrExpiredToken indicates the token is past its expiry
	ErrExpiredToken = core.NewError(core.ErrInvalidToken, "token expired")

	// ErrKindMismatch indicates a valid token of another kind was presented
	ErrKindMismatch = core.NewError(core.ErrInvalidToken, "token kind mismatch")

	// ErrTokenGeneration indicates token signing failed
	ErrTokenGeneration = core.NewError(core.ErrInvariant, "failed to generate token")
)

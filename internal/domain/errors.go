package domain

import "errors"

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
	ErrUnauthenticated      = errors.New("no active session")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidCoordinates   = errors.New("invalid coordinates")

	ErrPermissionDenied    = errors.New("position permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrPositionTimeout     = errors.New("position timeout")
	ErrFallbackUnavailable = errors.New("ip geolocation unavailable")
)

package apperrors

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrSourceUnavailable    = errors.New("session source unavailable")
	ErrMalformedRecord      = errors.New("malformed session record")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrCoordinatorClosed    = errors.New("stats coordinator closed")
)

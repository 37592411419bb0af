package domain

import "errors"

// Domain errors
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUsernameRequired = errors.New("at least one of chess_com_username or lichess_username is required")
	ErrStoreUnavailable = errors.New("player store unavailable")
	ErrInternalError    = errors.New("internal server error")
)

// IsClientError checks if an error was caused by the request itself
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrUsernameRequired)
}

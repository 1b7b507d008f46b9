package common

import "errors"

var (
	// store errors
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")

	// item errors
	ErrEmptyBody = errors.New("item body is empty")
	ErrForbidden = errors.New("forbidden")

	// credential errors
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrValidation    = errors.New("validation error")

	// token grant errors
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
	ErrInvalidGrant         = errors.New("invalid grant")

	// bearer token errors
	ErrTokenMissing     = errors.New("token missing")
	ErrTokenTypeInvalid = errors.New("token type must be bearer")
	ErrTokenInvalid     = errors.New("token invalid or expired")

	// session errors
	ErrLoginRequired = errors.New("login required")

	ErrUnknownLocale = errors.New("unknown locale")
)

// ValidationError reports bad input. Message is a translatable message key.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

package password

import "errors"

// Public, stable errors for callers.
var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrMissingUpper     = errors.New("password missing uppercase letter")
	ErrMissingLower     = errors.New("password missing lowercase letter")
	ErrMissingDigit     = errors.New("password missing digit")
	ErrMissingSpecial   = errors.New("password missing special character")
	ErrInvalidHash      = errors.New("invalid password hash")
	ErrInvalidConfig    = errors.New("invalid password config")
)

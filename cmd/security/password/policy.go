package password

import (
	"errors"
	"unicode/utf8"
)

// Validate checks password policy and returns the first violation.
func (c Config) Validate(password string) error {
	if errs := c.Violations(password); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Violations returns every policy rule the password breaks, in a stable order.
func (c Config) Violations(password string) []error {
	var out []error

	// Count runes, not bytes.
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		out = append(out, ErrPasswordTooShort)
	}
	if c.Policy.MaxLength > 0 && n > c.Policy.MaxLength {
		out = append(out, ErrPasswordTooLong)
	}

	if !c.Policy.RequireClasses {
		return out
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		out = append(out, ErrMissingUpper)
	}
	if !lower {
		out = append(out, ErrMissingLower)
	}
	if !digit {
		out = append(out, ErrMissingDigit)
	}
	if !special {
		out = append(out, ErrMissingSpecial)
	}
	return out
}

// IsPolicyError reports whether err is a policy violation (as opposed to a hashing failure).
func IsPolicyError(err error) bool {
	for _, target := range []error{
		ErrPasswordTooShort, ErrPasswordTooLong,
		ErrMissingUpper, ErrMissingLower, ErrMissingDigit, ErrMissingSpecial,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package authapi

import (
	"errors"
	"fmt"
	"strings"

	"authcore/cmd/security/password"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	msgFirstName     = "First name is required"
	msgLastName      = "Last name is required"
	msgEmail         = "Valid email is required"
	msgPhone         = "Phone number is required"
	msgPassword      = "Password is required"
	msgRefreshToken  = "Refresh token is required"
	msgClientType    = "Kindly provide the x-client-type"
	msgInvalidBody   = "Invalid request body"
	msgUserExists    = "User already exists"
	msgUserNotFound  = "User not found"
	msgInvalidCreds  = "Invalid credentials"
	msgUnavailable   = "Service temporarily unavailable"
	msgInternalError = "Internal server error"
)

var passwordMessages = map[error]string{
	password.ErrMissingUpper:   "Password must contain at least one uppercase letter",
	password.ErrMissingLower:   "Password must contain at least one lowercase letter",
	password.ErrMissingDigit:   "Password must contain at least one number",
	password.ErrMissingSpecial: "Password must contain at least one special character",
}

// validationError carries every failed rule in field order.
type validationError struct {
	messages []string
}

func (e *validationError) Error() string { return strings.Join(e.messages, ", ") }

type checks struct {
	messages []string
}

func (c *checks) field(value any, rules ...validation.Rule) {
	if err := validation.Validate(value, rules...); err != nil {
		c.messages = append(c.messages, err.Error())
	}
}

func (c *checks) err() error {
	if len(c.messages) == 0 {
		return nil
	}
	return &validationError{messages: c.messages}
}

func validateRegister(req registerRequest, pw password.Config) error {
	var c checks
	c.field(strings.TrimSpace(req.FirstName), validation.Required.Error(msgFirstName))
	c.field(strings.TrimSpace(req.LastName), validation.Required.Error(msgLastName))
	c.field(strings.TrimSpace(req.Email), validation.Required.Error(msgEmail), is.Email.Error(msgEmail))
	c.field(strings.TrimSpace(req.PhoneNumber), validation.Required.Error(msgPhone))
	c.field(req.Age, validation.Min(0).Error("Age must not be negative"))

	for _, v := range pw.Violations(req.Password) {
		msg, ok := passwordMessages[v]
		if !ok {
			msg = passwordPolicyMessage(v, pw)
		}
		c.messages = append(c.messages, msg)
	}
	return c.err()
}

func validateLogin(req loginRequest) error {
	var c checks
	c.field(strings.TrimSpace(req.Email), validation.Required.Error(msgEmail), is.Email.Error(msgEmail))
	c.field(req.Password, validation.Required.Error(msgPassword))
	return c.err()
}

func passwordPolicyMessage(err error, pw password.Config) string {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters long", pw.Policy.MinLength)
	case errors.Is(err, password.ErrPasswordTooLong):
		return fmt.Sprintf("Password must be at most %d characters long", pw.Policy.MaxLength)
	}
	return err.Error()
}

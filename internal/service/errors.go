package service

import "errors"

// Service errors handlers translate into HTTP responses.
var (
	ErrMissingFields      = errors.New("name, email and password are required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")

	ErrForwarderNotConfigured = errors.New("TICKETS_URL and/or TICKETS_API_KEY not configured")
	ErrTicketStorage          = errors.New("failed to save ticket to database")

	ErrShortDescriptionRequired = errors.New("short_description is required")
	ErrEventIDNotFound          = errors.New("could not extract eventId from short_description")
	ErrTicketNotFound           = errors.New("no ticket found for the given eventId")
	ErrATRUpdateFailed          = errors.New("failed to update ticket")
)

package types

import "errors"

var (
	// ErrNoBacklog indicates that no outstanding patches were found for a device.
	ErrNoBacklog = errors.New("no outstanding patches for device")

	// ErrInvalidEmail indicates an address that does not look like local@domain.tld.
	ErrInvalidEmail = errors.New("email address is missing or malformed")

	// ErrUserNotFound indicates the chat platform has no user for an email address.
	ErrUserNotFound = errors.New("chat user not found")

	// ErrMissingCredentials indicates a required credential environment variable is unset.
	ErrMissingCredentials = errors.New("missing credentials")
)

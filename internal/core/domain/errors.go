package domain

import "errors"

var (
	// ErrValidation is wrapped with the offending field(s) by the services.
	ErrValidation = errors.New("validation failed")

	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")

	// Invariant violations on user deletion.
	ErrLastAdmin  = errors.New("cannot delete the last admin")
	ErrSelfDelete = errors.New("cannot delete your own account")
	ErrUserInUse  = errors.New("user is still referenced by tasks")
)

package service

import "errors"

var (
	// ErrAuthentication carries the single message shown for every failed login.
	ErrAuthentication = errors.New("invalid username or password")
	ErrAuthorization  = errors.New("access denied")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrPermission     = errors.New("operation not permitted")
)

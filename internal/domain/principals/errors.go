package principals

import "errors"

var (
	ErrNotFound   = errors.New("principal not found")
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login failures are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

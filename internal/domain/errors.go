package domain

import "errors"

var (
	// ErrInvalidCredentials is returned when a user name and password do not match
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when the user name is already taken
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserLockedOut is returned while a user's lockout window is active
	ErrUserLockedOut = errors.New("user is locked out")

	// ErrClaimsNotAdded is returned when a user was created but its claims could not be stored
	ErrClaimsNotAdded = errors.New("user created but claims were not added")

	// ErrDatabaseQuery is returned when a store query fails
	ErrDatabaseQuery = errors.New("database query failed")

	// ErrInternal is returned when there is an internal server error
	ErrInternal = errors.New("internal server error")
)

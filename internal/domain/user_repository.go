package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindByUserName finds a user by its normalized user name
	FindByUserName(ctx context.Context, userName string) (*User, error)

	// UpdatePassword replaces a user's password hash
	UpdatePassword(ctx context.Context, userID ulid.ULID, passwordHash string) error

	// RecordFailedAccess atomically increments the failed attempt counter. When
	// the counter reaches maxAttempts it is cleared and the user is locked out
	// until lockoutEnd; lockedOut reports whether this call applied the lockout.
	RecordFailedAccess(ctx context.Context, userID ulid.ULID, maxAttempts int, lockoutEnd time.Time) (lockedOut bool, err error)

	// ResetAccessFailed clears the failed attempt counter and lockout end
	ResetAccessFailed(ctx context.Context, userID ulid.ULID) error

	// AddClaims attaches claims to a user
	AddClaims(ctx context.Context, userID ulid.ULID, claims []Claim) error

	// ListClaims returns the claims attached to a user
	ListClaims(ctx context.Context, userID ulid.ULID) ([]Claim, error)
}

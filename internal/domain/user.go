package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULID represents a Universally Unique Lexicographically Sortable Identifier
type ULID = ulid.ULID

// Claim types stored against a user and issued in tokens.
const (
	ClaimName    = "name"
	ClaimAdminID = "admin_id"
)

// Lockout policy applied by the membership layer.
const (
	MaxFailedAccessAttempts = 5
	DefaultLockoutTimeSpan  = 5 * time.Minute
)

// UserType selects which claims a new user receives
type UserType int

const (
	UserTypeAdmin UserType = iota + 1
	UserTypeStandard
)

func (t UserType) String() string {
	switch t {
	case UserTypeAdmin:
		return "Admin"
	case UserTypeStandard:
		return "Standard User"
	default:
		return fmt.Sprintf("UserType(%d)", int(t))
	}
}

// User represents a membership account
type User struct {
	ID                ulid.ULID  `json:"id"`
	UserName          string     `json:"user_name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	LockoutEnabled    bool       `json:"lockout_enabled"`
	AccessFailedCount int        `json:"access_failed_count"`
	LockoutEnd        *time.Time `json:"lockout_end,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Claim is a type/value pair attached to a user
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CreateUserRequest carries the operator input for a new account
type CreateUserRequest struct {
	Email          string     `validate:"required,email"`
	Name           string     `validate:"required"`
	Type           UserType   `validate:"required,oneof=1 2"`
	ExternalUserID *uuid.UUID `validate:"required_if=Type 1"`
}

// NewUser creates a user whose user name is its email address. Lockout is
// always enabled for new accounts.
func NewUser(email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:             ulid.Make(),
		UserName:       email,
		Email:          email,
		LockoutEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeUserName returns the key used for case-insensitive user name lookups
func NormalizeUserName(userName string) string {
	return strings.ToUpper(strings.TrimSpace(userName))
}

// IsLockedOut reports whether the lockout window is still open at now
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// Claims maps the request onto the claims stored for the new user.
func (r CreateUserRequest) Claims() []Claim {
	claims := []Claim{{Type: ClaimName, Value: r.Name}}
	if r.Type == UserTypeAdmin && r.ExternalUserID != nil {
		claims = append(claims, Claim{Type: ClaimAdminID, Value: r.ExternalUserID.String()})
	}
	return claims
}

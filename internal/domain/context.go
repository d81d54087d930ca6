package domain

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// ContextKey is a type for context keys to avoid magic strings
type ContextKey string

const (
	// ContextKeySubject is the key for the authenticated user ID in the context
	ContextKeySubject ContextKey = "sub"
	// ContextKeyScopes is the key for the scopes granted to the bearer token
	ContextKeyScopes ContextKey = "scopes"
)

// WithSubject adds the subject (user ID) to the context
func WithSubject(ctx context.Context, subject ulid.ULID) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// GetSubject retrieves the subject (user ID) from the context
func GetSubject(ctx context.Context) (ulid.ULID, bool) {
	subject, ok := ctx.Value(ContextKeySubject).(ulid.ULID)
	return subject, ok
}

// WithScopes adds the granted scopes to the context
func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, ContextKeyScopes, scopes)
}

// GetScopes retrieves the granted scopes from the context
func GetScopes(ctx context.Context) []string {
	scopes, _ := ctx.Value(ContextKeyScopes).([]string)
	return scopes
}

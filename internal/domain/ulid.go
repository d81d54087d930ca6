package domain

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// ParseULID parses a subject identifier back into a user ID
func ParseULID(id string) (ulid.ULID, error) {
	parsedID, err := ulid.Parse(id)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid ULID: %w", err)
	}
	return parsedID, nil
}

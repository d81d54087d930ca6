package password

import (
	"strings"
	"unicode"
)

// MinLength is the shortest password the policy accepts
const MinLength = 6

// Policy failure descriptions, in the order they are checked.
const (
	DescTooShort            = "Passwords must be at least 6 characters."
	DescRequiresNonAlphanum = "Passwords must have at least one non alphanumeric character."
	DescRequiresDigit       = "Passwords must have at least one digit ('0'-'9')."
	DescRequiresLower       = "Passwords must have at least one lowercase ('a'-'z')."
	DescRequiresUpper       = "Passwords must have at least one uppercase ('A'-'Z')."
)

// PolicyError lists every rule a password failed
type PolicyError struct {
	Failures []string
}

// Error returns the first failure, which is what operators are shown
func (e *PolicyError) Error() string {
	if len(e.Failures) == 0 {
		return "password does not satisfy the policy"
	}
	return e.Failures[0]
}

// Describe joins all failures into one line
func (e *PolicyError) Describe() string {
	return strings.Join(e.Failures, " ")
}

// Validate checks a password against the membership policy. It returns nil
// or a *PolicyError.
func Validate(pw string) error {
	var failures []string
	if len([]rune(pw)) < MinLength {
		failures = append(failures, DescTooShort)
	}

	var digit, lower, upper, other bool
	for _, r := range pw {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			other = true
		}
	}

	if !other {
		failures = append(failures, DescRequiresNonAlphanum)
	}
	if !digit {
		failures = append(failures, DescRequiresDigit)
	}
	if !lower {
		failures = append(failures, DescRequiresLower)
	}
	if !upper {
		failures = append(failures, DescRequiresUpper)
	}

	if len(failures) > 0 {
		return &PolicyError{Failures: failures}
	}
	return nil
}

package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!", hash)

	assert.NoError(t, CheckPassword("Secr3t!", hash))
	assert.ErrorIs(t, CheckPassword("wrong", hash), ErrMismatch)
	assert.Error(t, CheckPassword("Secr3t!", "not-a-hash"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{name: "valid", password: "Passw0rd!", want: nil},
		{name: "unicode symbol counts as non alphanumeric", password: "Passw0rd€", want: nil},
		{name: "too short", password: "Pa0!", want: []string{DescTooShort}},
		{name: "missing symbol", password: "Passw0rd", want: []string{DescRequiresNonAlphanum}},
		{name: "missing digit", password: "Password!", want: []string{DescRequiresDigit}},
		{name: "missing lowercase", password: "PASSW0RD!", want: []string{DescRequiresLower}},
		{name: "missing uppercase", password: "passw0rd!", want: []string{DescRequiresUpper}},
		{
			name:     "empty",
			password: "",
			want: []string{
				DescTooShort, DescRequiresNonAlphanum, DescRequiresDigit, DescRequiresLower, DescRequiresUpper,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}

			var policyErr *PolicyError
			require.True(t, errors.As(err, &policyErr))
			assert.Equal(t, tt.want, policyErr.Failures)
			assert.Equal(t, tt.want[0], err.Error())
		})
	}
}

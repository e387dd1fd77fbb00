// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"testing"

	"codeberg.org/oliverandrich/crypto-tracker/internal/services/auth"
	"github.com/stretchr/testify/assert"
)

func TestPasswordValidator(t *testing.T) {
	v := auth.DefaultPasswordValidator()

	tests := []struct {
		name     string
		password string
		attrs    []string
		codes    []string
	}{
		{"valid", "s3cure-pass", []string{"alice", "alice@example.com"}, nil},
		{"too short", "abc", nil, []string{"password_min_length"}},
		{"numeric", "1234567", nil, []string{"password_entirely_numeric"}},
		{"short and numeric", "123", nil, []string{"password_min_length", "password_entirely_numeric"}},
		{"contains username", "alice2024!", []string{"alice"}, []string{"password_too_similar"}},
		{"matches email local part", "bobsmith", []string{"bobsmith@example.com"}, []string{"password_too_similar"}},
		{"short attributes ignored", "xy-secret", []string{"xy"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.password, tt.attrs...)

			codes := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				codes = append(codes, e.Code)
			}
			if tt.codes == nil {
				assert.True(t, result.Valid)
				assert.Empty(t, codes)
				return
			}
			assert.False(t, result.Valid)
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestPasswordValidationError(t *testing.T) {
	err := &auth.PasswordValidationError{Errors: []auth.ValidationError{
		{Code: "password_entirely_numeric", Message: "Password cannot be entirely numeric"},
	}}

	assert.Equal(t, "Password cannot be entirely numeric", err.Error())
	assert.Equal(t, "password_entirely_numeric", err.First().Code)

	empty := &auth.PasswordValidationError{}
	assert.Equal(t, "password validation failed", empty.Error())
}

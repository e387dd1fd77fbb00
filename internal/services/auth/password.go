// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// PasswordValidator validates passwords against various criteria
type PasswordValidator struct {
	MinLength           int
	CheckUserSimilarity bool
}

// DefaultPasswordValidator requires six characters that are not all digits
// and do not resemble the account's username or email.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:           6,
		CheckUserSimilarity: true,
	}
}

// ValidationError represents a single password validation error.
// Code doubles as the message ID of its translation.
type ValidationError struct {
	Code    string
	Message string
	Data    map[string]any
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// First returns the first failed rule.
func (e *PasswordValidationError) First() ValidationError {
	if len(e.Errors) == 0 {
		return ValidationError{Code: "password_min_length", Message: e.Error()}
	}
	return e.Errors[0]
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a password against all configured validators
func (v *PasswordValidator) Validate(password string, userAttributes ...string) ValidationResult {
	var errors []ValidationError

	if len([]rune(password)) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "password_min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long", v.MinLength),
			Data:    map[string]any{"Min": v.MinLength},
		})
	}

	if isEntirelyNumeric(password) {
		errors = append(errors, ValidationError{
			Code:    "password_entirely_numeric",
			Message: "Password cannot be entirely numeric",
		})
	}

	if v.CheckUserSimilarity && len(userAttributes) > 0 {
		if isSimilarToUserAttributes(password, userAttributes) {
			errors = append(errors, ValidationError{
				Code:    "password_too_similar",
				Message: "Password is too similar to your personal information",
			})
		}
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range attributes {
		attrLower := strings.ToLower(attr)
		// compare against the local part of an email address
		if at := strings.IndexByte(attrLower, '@'); at > 0 {
			attrLower = attrLower[:at]
		}
		if len(attrLower) < 3 {
			continue
		}

		if strings.Contains(passwordLower, attrLower) || strings.Contains(attrLower, passwordLower) {
			return true
		}

		if similarity(passwordLower, attrLower) > 0.7 {
			return true
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	return float64(lcs) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}

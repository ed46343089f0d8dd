package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SignUpRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := SignUpRequest{
			Name:     "Jordan Reyes",
			Email:    "jordan@example.com",
			Password: "Sup3rSecret",
		}

		err := ValidateStruct(&s)
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		s := SignUpRequest{
			Email:    "jordan@example.com",
			Password: "Sup3rSecret",
		}

		err := ValidateStruct(&s)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Name")
	})

	t.Run("invalid email", func(t *testing.T) {
		s := SignUpRequest{
			Name:     "Jordan Reyes",
			Email:    "not-an-email",
			Password: "Sup3rSecret",
		}

		err := ValidateStruct(&s)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Email")
	})
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		errors   []string
	}{
		{
			name:     "all rules satisfied",
			password: "Abcdef12",
			valid:    true,
		},
		{
			name:     "too short",
			password: "Ab1",
			valid:    false,
			errors:   []string{PasswordErrLength},
		},
		{
			name:     "missing uppercase",
			password: "abcdefg1",
			valid:    false,
			errors:   []string{PasswordErrUpper},
		},
		{
			name:     "missing lowercase",
			password: "ABCDEFG1",
			valid:    false,
			errors:   []string{PasswordErrLower},
		},
		{
			name:     "missing number",
			password: "Abcdefgh",
			valid:    false,
			errors:   []string{PasswordErrNumber},
		},
		{
			name:     "empty password fails every rule in order",
			password: "",
			valid:    false,
			errors:   []string{PasswordErrLength, PasswordErrUpper, PasswordErrLower, PasswordErrNumber},
		},
		{
			name:     "special character not required",
			password: "Abcdefg1",
			valid:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePassword(tt.password)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     Strength
	}{
		{"empty", "", StrengthWeak},
		{"lowercase only", "abc", StrengthWeak},
		{"two checks", "abcdefgh", StrengthWeak}, // len>=8 + lower
		{"three checks", "abcdefg1", StrengthMedium},
		{"four checks", "Abcdefg1", StrengthMedium},
		{"five checks", "Abcdefghijk1", StrengthStrong},
		{"all six checks", "Abcdefghijk1!", StrengthStrong},
		{"symbols without length", "aB1!", StrengthMedium}, // upper+lower+digit+symbol
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PasswordStrength(tt.password))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.co",
		"u+tag@example.io",
	}
	for _, email := range valid {
		t.Run(email, func(t *testing.T) {
			assert.True(t, ValidateEmail(email))
		})
	}

	invalid := []string{
		"",
		"no-at-sign",
		"@example.com",
		"user@",
		"user@nodot",
		"user@dotless.",
		"user name@example.com",
		"user@exa mple.com",
		"user@@example.com",
	}
	for _, email := range invalid {
		t.Run("invalid_"+email, func(t *testing.T) {
			assert.False(t, ValidateEmail(email))
		})
	}
}

func TestValidateSlug(t *testing.T) {
	t.Run("valid slugs", func(t *testing.T) {
		for _, slug := range []string{"acme", "acme-corp", "a1b", "org-42"} {
			result := ValidateSlug(slug)
			assert.True(t, result.Valid, slug)
			assert.Empty(t, result.Err)
		}
	})

	tests := []struct {
		name string
		slug string
		err  string
	}{
		{"too short", "ab", SlugErrLength},
		{"empty", "", SlugErrLength},
		{"too long", "a123456789012345678901234567890123456789012345678901", SlugErrLength},
		{"uppercase rejected", "Acme", SlugErrChars},
		{"underscore rejected", "acme_corp", SlugErrChars},
		{"space rejected", "acme corp", SlugErrChars},
		{"leading hyphen", "-acme", SlugErrHyphen},
		{"trailing hyphen", "acme-", SlugErrHyphen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSlug(tt.slug)
			require.False(t, result.Valid)
			assert.Equal(t, tt.err, result.Err)
		})
	}

	t.Run("first failing rule wins", func(t *testing.T) {
		// "-a" fails both the length and hyphen rules; length is reported
		result := ValidateSlug("-a")
		assert.Equal(t, SlugErrLength, result.Err)
	})
}

func floatPtr(f float64) *float64 { return &f }

func TestParseNumber(t *testing.T) {
	t.Run("parses plain value", func(t *testing.T) {
		assert.Equal(t, 42.5, ParseNumber("42.5", NumberOptions{}))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		assert.Equal(t, 7.0, ParseNumber("  7  ", NumberOptions{}))
	})

	t.Run("parse failure returns default", func(t *testing.T) {
		assert.Equal(t, 3.0, ParseNumber("abc", NumberOptions{Default: 3}))
		assert.Equal(t, 0.0, ParseNumber("", NumberOptions{}))
	})

	t.Run("clamps to bounds instead of rejecting", func(t *testing.T) {
		opts := NumberOptions{Min: floatPtr(0), Max: floatPtr(100)}
		assert.Equal(t, 0.0, ParseNumber("-5", opts))
		assert.Equal(t, 100.0, ParseNumber("250", opts))
		assert.Equal(t, 50.0, ParseNumber("50", opts))
	})
}

func TestParseInteger(t *testing.T) {
	t.Run("parses integer", func(t *testing.T) {
		assert.Equal(t, 10, ParseInteger("10", NumberOptions{}))
	})

	t.Run("rejects fractional input", func(t *testing.T) {
		assert.Equal(t, 1, ParseInteger("10.5", NumberOptions{Default: 1}))
	})

	t.Run("parse failure returns default", func(t *testing.T) {
		assert.Equal(t, 25, ParseInteger("limit", NumberOptions{Default: 25}))
	})

	t.Run("clamps to bounds", func(t *testing.T) {
		opts := NumberOptions{Min: floatPtr(1), Max: floatPtr(100), Default: 25}
		assert.Equal(t, 1, ParseInteger("0", opts))
		assert.Equal(t, 100, ParseInteger("9999", opts))
	})
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name      string
		uuid      string
		wantError bool
	}{
		{
			name:      "valid UUID",
			uuid:      "550e8400-e29b-41d4-a716-446655440000",
			wantError: false,
		},
		{
			name:      "invalid UUID - wrong format",
			uuid:      "not-a-uuid",
			wantError: true,
		},
		{
			name:      "empty string",
			uuid:      "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUUID(tt.uuid)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

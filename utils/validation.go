package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// validate is the singleton validator instance
	validate *validator.Validate

	// slugRegex matches lowercase letters, digits and hyphens only
	slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func init() {
	validate = validator.New()
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	for _, err := range errs {
		field := err.Field()
		tag := err.Tag()

		switch tag {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "email":
			fields[field] = fmt.Sprintf("%s must be a valid email", field)
		case "uuid":
			fields[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		default:
			fields[field] = fmt.Sprintf("%s validation failed on '%s' tag", field, tag)
		}
	}

	return &ValidationError{
		Message: "Validation failed",
		Fields:  fields,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}

// ValidateUUID validates that a string is a valid UUID
func ValidateUUID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID format: %s", s)
	}
	return nil
}

// Password rule messages. Stable strings: sign-up forms key off them.
const (
	PasswordErrLength = "Password must be at least 8 characters long"
	PasswordErrUpper  = "Password must contain at least one uppercase letter"
	PasswordErrLower  = "Password must contain at least one lowercase letter"
	PasswordErrNumber = "Password must contain at least one number"
)

// PasswordValidation is the outcome of ValidatePassword
type PasswordValidation struct {
	Valid  bool     `json:"is_valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidatePassword checks minimum length and character-class requirements.
// Every unmet rule contributes one error, in a fixed order: length,
// uppercase, lowercase, number. A special character is not required.
func ValidatePassword(password string) PasswordValidation {
	var errs []string

	if len(password) < 8 {
		errs = append(errs, PasswordErrLength)
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		errs = append(errs, PasswordErrUpper)
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		errs = append(errs, PasswordErrLower)
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		errs = append(errs, PasswordErrNumber)
	}

	return PasswordValidation{Valid: len(errs) == 0, Errors: errs}
}

// Strength is a coarse password strength classification
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// PasswordStrength scores a password over six checks: length >= 8,
// length >= 12, uppercase, lowercase, digit, symbol. Fewer than 3
// satisfied checks is weak, fewer than 5 medium, otherwise strong.
func PasswordStrength(password string) Strength {
	score := 0
	if len(password) >= 8 {
		score++
	}
	if len(password) >= 12 {
		score++
	}
	if strings.ContainsFunc(password, unicode.IsUpper) {
		score++
	}
	if strings.ContainsFunc(password, unicode.IsLower) {
		score++
	}
	if strings.ContainsFunc(password, unicode.IsDigit) {
		score++
	}
	if strings.ContainsFunc(password, isSymbol) {
		score++
	}

	switch {
	case score < 3:
		return StrengthWeak
	case score < 5:
		return StrengthMedium
	default:
		return StrengthStrong
	}
}

func isSymbol(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// ValidateEmail is a permissive shape check: non-whitespace local part,
// an @, and a non-whitespace domain containing a dot. It catches obvious
// typos, not RFC violations; the mail provider is the real validator.
func ValidateEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	if strings.ContainsFunc(local, unicode.IsSpace) || strings.ContainsFunc(domain, unicode.IsSpace) {
		return false
	}
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// Slug rule messages, first failing rule wins
const (
	SlugErrLength = "Slug must be between 3 and 50 characters"
	SlugErrChars  = "Slug may only contain lowercase letters, numbers and hyphens"
	SlugErrHyphen = "Slug cannot start or end with a hyphen"
)

// SlugValidation is the outcome of ValidateSlug
type SlugValidation struct {
	Valid bool   `json:"is_valid"`
	Err   string `json:"error,omitempty"`
}

// ValidateSlug checks an organization slug: 3-50 characters from
// [a-z0-9-], not starting or ending with a hyphen. Exactly one error is
// reported, the first failing rule in that order.
func ValidateSlug(slug string) SlugValidation {
	if len(slug) < 3 || len(slug) > 50 {
		return SlugValidation{Err: SlugErrLength}
	}
	if !slugRegex.MatchString(slug) {
		return SlugValidation{Err: SlugErrChars}
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return SlugValidation{Err: SlugErrHyphen}
	}
	return SlugValidation{Valid: true}
}

// NumberOptions bounds ParseNumber and ParseInteger. Nil bounds are not
// applied; Default is returned on parse failure.
type NumberOptions struct {
	Min     *float64
	Max     *float64
	Default float64
}

// ParseNumber parses a decimal string. A value that fails to parse
// yields the default; a value outside the bounds saturates to the
// nearest bound rather than erroring.
func ParseNumber(value string, opts NumberOptions) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return opts.Default
	}
	if opts.Min != nil && n < *opts.Min {
		n = *opts.Min
	}
	if opts.Max != nil && n > *opts.Max {
		n = *opts.Max
	}
	return n
}

// ParseInteger is ParseNumber for integers, with the same clamp-not-reject
// out-of-range behavior.
func ParseInteger(value string, opts NumberOptions) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return int(opts.Default)
	}
	if opts.Min != nil && float64(n) < *opts.Min {
		n = int(*opts.Min)
	}
	if opts.Max != nil && float64(n) > *opts.Max {
		n = int(*opts.Max)
	}
	return n
}

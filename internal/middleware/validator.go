package middleware

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input validation and sanitization utilities

var caseIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,128}$`)

// ValidateCaseID validates case ID format
func ValidateCaseID(caseID string) error {
	if caseID == "" {
		return fmt.Errorf("case ID cannot be empty")
	}
	if !caseIDPattern.MatchString(caseID) {
		return fmt.Errorf("invalid case ID format (alphanumeric, dash, underscore, dot, colon only, max 128 chars)")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("caseid", func(fl validator.FieldLevel) bool {
		return caseIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateStruct runs the `validate` tags of a request DTO and flattens the
// failures into one readable error.
func ValidateStruct(s any) error {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

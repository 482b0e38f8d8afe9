package usecase

import (
	"regexp"
	"strings"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/security"
)

// Field error codes returned to clients. The frontend translates them, so
// they are stable identifiers rather than human-readable messages.
const (
	CodeRequiredFields        = "errRequiredFields"
	CodeInvalidEmail          = "errInvalidEmail"
	CodePasswordMismatch      = "errPasswordMismatch"
	CodeWeakPassword          = "errWeakPassword"
	CodeInvalidRole           = "errInvalidRole"
	CodeConditionsNotAccepted = "errConditionsNotAccepted"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError carries the full list of field error codes for a request,
// not just the first violation found.
type ValidationError struct {
	Codes []string
}

// Error implements error for ValidationError.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Codes, ", ")
}

func newValidationError(codes ...string) *ValidationError {
	return &ValidationError{Codes: codes}
}

// validateRegistration checks every registration field and accumulates codes.
func validateRegistration(in RegisterInput, passwords *security.PasswordValidator) *ValidationError {
	var codes []string

	if strings.TrimSpace(in.Firstname) == "" ||
		strings.TrimSpace(in.Email) == "" ||
		in.Password == "" ||
		in.RepeatedPassword == "" ||
		strings.TrimSpace(in.Role) == "" {
		codes = append(codes, CodeRequiredFields)
	}

	if email := strings.TrimSpace(in.Email); email != "" && !emailPattern.MatchString(email) {
		codes = append(codes, CodeInvalidEmail)
	}

	if in.Password != "" && in.RepeatedPassword != "" && in.Password != in.RepeatedPassword {
		codes = append(codes, CodePasswordMismatch)
	}

	if in.Password != "" {
		if err := passwords.Validate(in.Password); err != nil {
			codes = append(codes, CodeWeakPassword)
		}
	}

	if role := strings.TrimSpace(in.Role); role != "" && !domain.UserRole(role).IsValid() {
		codes = append(codes, CodeInvalidRole)
	}

	if !in.AcceptConditions {
		codes = append(codes, CodeConditionsNotAccepted)
	}

	if len(codes) == 0 {
		return nil
	}
	return &ValidationError{Codes: codes}
}

// requireFields returns a ValidationError when any of the values is blank.
func requireFields(values ...string) *ValidationError {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return newValidationError(CodeRequiredFields)
		}
	}
	return nil
}

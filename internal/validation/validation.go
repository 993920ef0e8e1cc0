package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength bounds inbound chat text before it reaches the router
const MaxMessageLength = 4000

// MaxUserIDLength bounds user identifiers accepted from transports
const MaxUserIDLength = 128

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator collects field errors
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns the collected errors, or nil when there are none
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) {
	if len(value) > max {
		v.AddError(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// Range validates that an integer lies within [min, max]
func (v *Validator) Range(field string, value, min, max int) {
	if value < min || value > max {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ChatRequestValidator validates inbound chat turns
type ChatRequestValidator struct {
	*Validator
}

// NewChatRequestValidator creates a validator for chat requests
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{
		Validator: NewValidator(),
	}
}

// ValidateUserID checks the identifier is usable as a storage key
func (v *ChatRequestValidator) ValidateUserID(userID string) {
	v.Required("user_id", userID)
	v.MaxLength("user_id", userID, MaxUserIDLength)
	if strings.TrimSpace(userID) != "" && SanitizeUserID(userID) == "" {
		v.AddError("user_id", "must contain at least one letter, digit, '_' or '-'")
	}
}

// ValidateMessage checks the chat text is present and bounded
func (v *ChatRequestValidator) ValidateMessage(message string) {
	v.Required("message", message)
	v.MaxLength("message", message, MaxMessageLength)
}

// SanitizeInput strips null bytes, trims and bounds user text
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	if utf8.RuneCountInString(input) > MaxMessageLength {
		input = string([]rune(input)[:MaxMessageLength])
	}

	return input
}

// SanitizeUserID keeps only letters, digits, '_' and '-' so the id is safe in
// file names and cache keys. WhatsApp senders such as "whatsapp:+9199..." become
// "whatsapp9199...".
func SanitizeUserID(userID string) string {
	var sb strings.Builder
	for _, r := range userID {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

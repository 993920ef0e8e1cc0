package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Required(t *testing.T) {
	v := NewValidator()

	v.Required("field", "")
	assert.True(t, v.HasErrors())
	assert.Equal(t, "field", v.Errors()[0].Field)
	assert.Contains(t, v.Errors()[0].Message, "required")

	v = NewValidator()
	v.Required("field", "  ")
	assert.True(t, v.HasErrors())

	v = NewValidator()
	v.Required("field", "value")
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
}

func TestValidator_Range(t *testing.T) {
	v := NewValidator()
	v.Range("risk_score", 101, 0, 100)
	require.True(t, v.HasErrors())
	assert.Contains(t, v.Errors()[0].Message, "between 0 and 100")

	v = NewValidator()
	v.Range("risk_score", 0, 0, 100)
	v.Range("risk_score", 100, 0, 100)
	assert.False(t, v.HasErrors())
}

func TestValidator_OneOf(t *testing.T) {
	v := NewValidator()
	v.OneOf("category", "Reckless", []string{"Low", "High"})
	assert.True(t, v.HasErrors())

	v = NewValidator()
	v.OneOf("category", "Low", []string{"Low", "High"})
	assert.False(t, v.HasErrors())
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "", errs.Error())

	errs = append(errs, ValidationError{Field: "a", Message: "bad"})
	assert.Equal(t, "a: bad", errs.Error())

	errs = append(errs, ValidationError{Field: "b", Message: "worse"})
	assert.Equal(t, "validation errors: a: bad; b: worse", errs.Error())
}

func TestChatRequestValidator(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		message string
		wantErr bool
	}{
		{name: "valid", userID: "user-1", message: "what is a SIP?"},
		{name: "whatsapp sender", userID: "whatsapp:+919876543210", message: "hi"},
		{name: "missing user", userID: "", message: "hi", wantErr: true},
		{name: "only symbols", userID: "::++", message: "hi", wantErr: true},
		{name: "missing message", userID: "u", message: "   ", wantErr: true},
		{name: "message too long", userID: "u", message: strings.Repeat("a", MaxMessageLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewChatRequestValidator()
			v.ValidateUserID(tt.userID)
			v.ValidateMessage(tt.message)
			assert.Equal(t, tt.wantErr, v.HasErrors(), v.Errors())
		})
	}
}

func TestSanitizeUserID(t *testing.T) {
	assert.Equal(t, "whatsapp919876543210", SanitizeUserID("whatsapp:+919876543210"))
	assert.Equal(t, "user_1-a", SanitizeUserID("user_1-a"))
	assert.Equal(t, "etcpasswd", SanitizeUserID("../etc/passwd"))
	assert.Equal(t, "", SanitizeUserID("::"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hel\x00lo \n"))
	assert.Len(t, SanitizeInput(strings.Repeat("x", MaxMessageLength+50)), MaxMessageLength)
}

// Package messaging delivers replies over WhatsApp (Twilio) and Telegram
package messaging

import (
	"context"
)

const (
	// WhatsAppLimit is the longest body Twilio accepts for WhatsApp
	WhatsAppLimit = 1600
	// TelegramLimit is the longest text a Telegram message may carry
	TelegramLimit = 4096

	truncationSuffix = "... (truncated due to length)"
	truncationMargin = 30
)

// Sender delivers text to a recipient and reports success
type Sender interface {
	Send(ctx context.Context, recipient, text string) bool
}

// Truncate fits text into a WhatsApp message: anything over 1600 characters
// becomes the first 1570 plus a truncation note.
func Truncate(text string) string {
	return TruncateTo(text, WhatsAppLimit)
}

// TruncateTo caps text at limit characters, keeping limit-30 and appending
// the truncation note when it is longer.
func TruncateTo(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	keep := limit - truncationMargin
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncationSuffix
}

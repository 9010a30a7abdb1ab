package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxMessageLength caps a single turn's message (~8KB). Long pastes are
// rejected rather than silently truncated.
const maxMessageLength = 8192

// ValidateChatMessage validates a visitor message.
func ValidateChatMessage(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > maxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateBotID validates a bot ID.
func ValidateBotID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid bot ID format")
	}
	return nil
}

// ValidateConversationID validates an optional conversation ID.
func ValidateConversationID(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateVisitorID validates the opaque client-supplied visitor ID.
func ValidateVisitorID(id string) error {
	if len(id) > 128 {
		return errors.New("visitor ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("visitor ID must be valid UTF-8")
	}
	return nil
}

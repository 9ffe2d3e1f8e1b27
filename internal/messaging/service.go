// Package messaging defines the pluggable message delivery abstraction used
// by the conversation flow, notification sweep, and webhook server.
package messaging

import (
	"context"
	"errors"
	"regexp"
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service is stopped")

// phoneNumberRegex strips everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`\D`)

// MinPhoneDigits is the minimum number of digits for a valid recipient.
const MinPhoneDigits = 6

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// phone number. Returns the canonicalized recipient and an error if
	// validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient. Delivery is
	// best-effort; failures are logged by callers, not retried.
	SendMessage(ctx context.Context, to string, body string) error

	// SendDocument sends a document to a recipient. Transports without
	// document support degrade to a text notice.
	SendDocument(ctx context.Context, to string, data []byte, filename string) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error
}

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mamamind/mamamind/internal/twilio"
)

// TwilioService implements Service on top of the Twilio WhatsApp API.
type TwilioService struct {
	client  twilio.Sender
	mu      sync.RWMutex
	stopped bool
}

// NewTwilioService creates a TwilioService around the given sender. The
// sender may be a real Twilio client or a mock.
func NewTwilioService(client twilio.Sender) *TwilioService {
	return &TwilioService{client: client}
}

// ValidateAndCanonicalizeRecipient strips non-digits and validates length.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op for Twilio (stateless REST API).
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop marks the service stopped; subsequent sends fail fast.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

// SendMessage sends a text message via Twilio.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendDocument sends a document via Twilio; the underlying client degrades
// to a text notice.
func (s *TwilioService) SendDocument(ctx context.Context, to string, data []byte, filename string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendDocument validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendDocument(ctx, canonical, data, filename)
}

func (s *TwilioService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// canonicalizePhone removes all non-numeric characters and validates the
// result has at least MinPhoneDigits digits.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	if recipient != canonical {
		slog.Debug("canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

package messaging

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mamamind/mamamind/internal/whatsapp"
)

// WhatsAppService implements Service on top of a direct whatsmeow
// connection, bypassing Twilio.
type WhatsAppService struct {
	client  whatsapp.Sender
	mu      sync.RWMutex
	stopped bool
}

// NewWhatsAppService creates a WhatsAppService around the given sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	return &WhatsAppService{client: client}
}

// ValidateAndCanonicalizeRecipient strips non-digits and validates length.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; connection setup happens in whatsapp.NewClient.
func (s *WhatsAppService) Start(ctx context.Context) error {
	return nil
}

// Stop marks the service stopped; subsequent sends fail fast.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

// SendMessage sends a text message over the WhatsApp connection.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendDocument uploads and sends a document over the WhatsApp connection.
func (s *WhatsAppService) SendDocument(ctx context.Context, to string, data []byte, filename string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendDocument validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendDocument(ctx, canonical, data, filename)
}

func (s *WhatsAppService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

package twilio

import (
	"context"
	"strings"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when credentials are missing")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error when from number is missing")
	}
}

func TestBuildReply(t *testing.T) {
	doc, err := BuildReply("Hello from MamáMind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc, "Hello from MamáMind") {
		t.Errorf("reply body missing from TwiML: %q", doc)
	}
	if !strings.Contains(doc, "<Message>") && !strings.Contains(doc, "<Message ") {
		t.Errorf("expected Message element in TwiML: %q", doc)
	}
}

func TestMockClientRecords(t *testing.T) {
	m := NewMockClient()
	if err := m.SendMessage(context.Background(), "15551234567", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SendDocument(context.Background(), "15551234567", []byte("pdf"), "plan.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.SentMessages) != 1 || m.SentMessages[0].Body != "hi" {
		t.Errorf("unexpected sent messages: %+v", m.SentMessages)
	}
	if len(m.SentDocuments) != 1 || m.SentDocuments[0].Filename != "plan.pdf" {
		t.Errorf("unexpected sent documents: %+v", m.SentDocuments)
	}
}

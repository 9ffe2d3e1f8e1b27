package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mamamind/mamamind/internal/twilio"
)

// genericApology is sent when inbound processing fails for any reason. Users
// never see raw errors.
const genericApology = "Sorry, something went wrong. Please try again later."

// inboundMessage is the JSON webhook payload used by non-Twilio callers.
type inboundMessage struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// webhookReply is the JSON reply envelope for non-Twilio callers.
type webhookReply struct {
	Reply string `json:"reply"`
}

// webhookHandler receives an inbound user message and replies with the
// conversation flow's response. Twilio posts form-encoded From/Body pairs and
// expects a TwiML document back; everything else speaks JSON.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	from, body, isTwilio, err := parseInbound(r)
	if err != nil {
		slog.Warn("Server.webhookHandler: failed to parse inbound message", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, errorResponse("invalid webhook payload"))
		return
	}

	reply := s.processInbound(r, from, body)

	if isTwilio {
		doc, err := twilio.BuildReply(reply)
		if err != nil {
			slog.Error("Server.webhookHandler: failed to build TwiML reply", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, errorResponse("failed to build reply"))
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(doc)); err != nil {
			slog.Error("Server.webhookHandler: failed to write TwiML reply", "error", err)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, webhookReply{Reply: reply})
}

// processInbound runs the conversation flow and converts every failure mode,
// panics included, into the generic apology.
func (s *Server) processInbound(r *http.Request, from, body string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.processInbound: recovered from panic", "panic", rec, "from", from)
			reply = genericApology
		}
	}()

	reply, err := s.flow.ProcessMessage(r.Context(), from, body)
	if err != nil {
		slog.Error("Server.processInbound: flow failed", "error", err, "from", from)
		return genericApology
	}
	return reply
}

// parseInbound extracts the sender and message text from either a Twilio
// form post or a JSON payload.
func parseInbound(r *http.Request) (from, body string, isTwilio bool, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return "", "", true, err
		}
		from = strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
		body = r.PostFormValue("Body")
		return from, body, true, nil
	}

	var msg inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		return "", "", false, err
	}
	return strings.TrimPrefix(msg.From, "whatsapp:"), msg.Message, false, nil
}

// scheduledHandler runs one notification sweep and reports the counts. The
// cron scheduler calls this in-process; exposing it over HTTP also allows an
// external scheduler to drive the sweep.
func (s *Server) scheduledHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result := s.sweeper.Run(r.Context())
	slog.Info("Server.scheduledHandler: sweep complete", "users", result.Users, "failures", result.Failures)
	writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

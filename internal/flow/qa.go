package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mamamind/mamamind/internal/models"
)

// MaxAnswerLength caps Q&A replies at a transport-safe size.
const MaxAnswerLength = 1600

const qaSystemPrompt = "You are a pregnancy nutrition expert. Provide concise, evidence-based answers " +
	"that address the user's specific situation. Include a reputable medical source if available. " +
	"Keep your answer under 150 words and make it both accurate and reassuring."

// handleNutritionQuestion forwards free text to the completion service with
// the user's full profile and logs the exchange. A completion failure still
// logs the question and returns a static apology.
func (f *ConversationFlow) handleNutritionQuestion(ctx context.Context, profile *models.UserProfile, question string) string {
	prompt := buildQuestionPrompt(profile, question)

	answer, err := f.ai.Complete(ctx, qaSystemPrompt, prompt)
	if err != nil {
		slog.Error("ConversationFlow nutrition question failed", "error", err, "phone", profile.Phone)
		answer = msgQAApology
	} else {
		answer = truncateAtSentence(strings.TrimSpace(answer), MaxAnswerLength)
	}

	conversation := models.Conversation{
		ID:       uuid.NewString(),
		Phone:    profile.Phone,
		Question: question,
		Answer:   answer,
		Time:     time.Now(),
	}
	if err := f.store.AddConversation(conversation); err != nil {
		// Audit logging is best-effort; the user still gets an answer.
		slog.Error("ConversationFlow failed to log conversation", "error", err, "phone", profile.Phone)
	}

	return answer
}

func buildQuestionPrompt(profile *models.UserProfile, question string) string {
	return fmt.Sprintf(
		"I need a pregnancy nutrition expert answer for a pregnant woman with the following profile:\n"+
			"- Trimester: %d\n"+
			"- Dietary Preferences: %s\n"+
			"- Allergies/Intolerances: %s\n"+
			"- Cultural Food Preferences: %s\n"+
			"- Pregnancy Conditions: %s\n\n"+
			"Question: %s",
		profile.Trimester,
		strings.Join(profile.DietaryList(), ", "),
		profile.Allergies,
		profile.CulturalPreference,
		strings.Join(profile.ConditionList(), ", "),
		question)
}

// truncateAtSentence cuts text to at most max runes, preferring the last
// sentence boundary before the limit.
func truncateAtSentence(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	window := string(runes[:max])
	cut := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(window, sep); idx > cut {
			cut = idx
		}
	}
	if cut > 0 {
		return strings.TrimSpace(window[:cut+1])
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

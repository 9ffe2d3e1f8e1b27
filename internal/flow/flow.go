// Package flow implements the MamaMind conversation state machine.
//
// An inbound message plus the user's current state produces a reply, a next
// state, and side effects (profile updates, plan generation requests). Global
// commands are checked before state dispatch and override the current state.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mamamind/mamamind/internal/genai"
	"github.com/mamamind/mamamind/internal/mealplan"
	"github.com/mamamind/mamamind/internal/messaging"
	"github.com/mamamind/mamamind/internal/models"
	"github.com/mamamind/mamamind/internal/store"
)

// ConversationFlow orchestrates onboarding, meal plan requests and Q&A.
type ConversationFlow struct {
	store     store.Store
	generator *mealplan.Generator
	ai        genai.CompletionClient
	messenger messaging.Service
}

// FlowOption configures a ConversationFlow.
type FlowOption func(*ConversationFlow)

// WithAsyncPlanDelivery makes plan generation reply immediately and push the
// finished plan through the given messenger instead of blocking the inbound
// message on the completion call.
func WithAsyncPlanDelivery(m messaging.Service) FlowOption {
	return func(f *ConversationFlow) { f.messenger = m }
}

// NewConversationFlow creates the state machine with its collaborators.
func NewConversationFlow(st store.Store, generator *mealplan.Generator, ai genai.CompletionClient, opts ...FlowOption) *ConversationFlow {
	f := &ConversationFlow{store: st, generator: generator, ai: ai}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ProcessMessage handles one inbound message and returns the reply text.
// The user's profile is created on first contact and saved after every
// message (last write wins for concurrent messages from the same user).
func (f *ConversationFlow) ProcessMessage(ctx context.Context, phone, body string) (string, error) {
	profile, err := f.loadOrCreateProfile(phone)
	if err != nil {
		return "", err
	}
	profile.LastActive = time.Now()

	reply := f.dispatch(ctx, profile, strings.TrimSpace(body))

	if err := f.store.SaveUserProfile(*profile); err != nil {
		slog.Error("ConversationFlow failed to save profile", "error", err, "phone", phone)
		return "", fmt.Errorf("failed to save profile: %w", err)
	}
	return reply, nil
}

func (f *ConversationFlow) loadOrCreateProfile(phone string) (*models.UserProfile, error) {
	profile, err := f.store.GetUserProfile(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		slog.Debug("ConversationFlow creating profile for new number", "phone", phone)
		profile = &models.UserProfile{Phone: phone, CreatedAt: time.Now()}
	}
	return profile, nil
}

// dispatch routes one message: global commands first, then per-state handlers.
func (f *ConversationFlow) dispatch(ctx context.Context, profile *models.UserProfile, body string) string {
	lower := strings.ToLower(body)

	switch lower {
	case "start", "hi", "hello":
		return f.handleOnboardingStart(profile)
	case "end":
		profile.State = models.StateCompletedOnboarding
		return msgClosing
	case "start over":
		profile.State = models.StateConfirmReset
		return msgConfirmReset
	case "update preferences", "settings":
		return "Let's update your preferences. " + f.handleOnboardingStart(profile)
	case "menu", "help", "options":
		return msgHelp
	}

	if isMealPlanRequest(lower) {
		return f.generateMealPlan(ctx, profile)
	}

	switch profile.State {
	case models.StateOnboardingStart, "":
		return f.handleOnboardingStart(profile)
	case models.StateAwaitingTrimester:
		return f.handleTrimester(profile, body)
	case models.StateAwaitingDietaryPreferences:
		return f.handleDietaryPreferences(profile, body)
	case models.StateAwaitingOtherDietary:
		return f.handleOtherDietary(profile, body)
	case models.StateAwaitingAllergies:
		return f.handleAllergies(profile, body)
	case models.StateAwaitingCulturalPreferences:
		return f.handleCulturalPreferences(profile, body)
	case models.StateAwaitingPregnancyConditions:
		return f.handlePregnancyConditions(profile, body)
	case models.StateAwaitingOtherConditions:
		return f.handleOtherConditions(profile, body)
	case models.StateAwaitingUsagePreferences:
		return f.handleUsagePreferences(profile, body)
	case models.StateConfirmReset:
		return f.handleConfirmReset(profile, lower)
	case models.StateAwaitingMealPlanDay:
		return f.handleMealPlanDay(ctx, profile, body)
	case models.StateAwaitingShareConfirmation:
		return f.handleShareConfirmation(profile, lower)
	default:
		return f.handleNutritionQuestion(ctx, profile, body)
	}
}

// mealPlanKeywords trigger plan generation regardless of current state.
var mealPlanKeywords = []string{
	"meal plan", "mealplan", "weekly plan", "food plan", "nutrition plan", "eating plan", "meals",
}

func isMealPlanRequest(lower string) bool {
	for _, kw := range mealPlanKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (f *ConversationFlow) handleOnboardingStart(profile *models.UserProfile) string {
	profile.State = models.StateAwaitingTrimester
	return msgGreeting
}

func (f *ConversationFlow) handleTrimester(profile *models.UserProfile, body string) string {
	trimester, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil {
		return "Please enter a valid number for your trimester."
	}
	if trimester < 1 || trimester > 3 {
		return "Please enter a valid trimester (1, 2, or 3)."
	}

	profile.Trimester = trimester
	profile.State = models.StateAwaitingDietaryPreferences
	return "Thanks! Do you have any dietary restrictions or preferences?\n\n" + numberedOptions(models.DietaryPreferences)
}

func (f *ConversationFlow) handleDietaryPreferences(profile *models.UserProfile, body string) string {
	selections, result := parseSelections(body, len(models.DietaryPreferences))
	switch result {
	case parseNonNumeric:
		return "Please enter valid numbers for your dietary preferences."
	case parseOutOfRange:
		return fmt.Sprintf("Please enter valid numbers between 1 and %d.", len(models.DietaryPreferences))
	}

	profile.DietaryPreferences = nil
	hasOther := false
	for _, s := range selections {
		name := models.DietaryPreferences[s-1]
		profile.DietaryPreferences = append(profile.DietaryPreferences, name)
		if name == "Other" {
			hasOther = true
		}
	}

	if hasOther {
		profile.State = models.StateAwaitingOtherDietary
		return "You selected Other – tell me a bit more about your dietary needs in a few words."
	}
	profile.State = models.StateAwaitingAllergies
	return fmt.Sprintf(
		"Got it – %s!\n\nAny food allergies or intolerances I should know about? Please list them, or type NONE.",
		strings.Join(profile.DietaryPreferences, ", "))
}

func (f *ConversationFlow) handleOtherDietary(profile *models.UserProfile, body string) string {
	profile.OtherDietary = strings.TrimSpace(body)
	profile.State = models.StateAwaitingAllergies
	return "Thanks for sharing!\n\nAny food allergies or intolerances I should know about? Please list them, or type NONE."
}

func (f *ConversationFlow) handleAllergies(profile *models.UserProfile, body string) string {
	allergies := strings.TrimSpace(body)
	if strings.EqualFold(allergies, "none") {
		allergies = ""
	}
	profile.Allergies = allergies
	profile.State = models.StateAwaitingCulturalPreferences

	confirmation := "no allergies"
	if allergies != "" {
		confirmation = "avoiding " + allergies
	}
	return fmt.Sprintf(
		"Noted – %s.\n\nWhich cuisine or cultural food traditions do you typically follow? This helps me suggest meals you'll enjoy.",
		confirmation)
}

func (f *ConversationFlow) handleCulturalPreferences(profile *models.UserProfile, body string) string {
	profile.CulturalPreference = strings.TrimSpace(body)
	profile.State = models.StateAwaitingPregnancyConditions
	return fmt.Sprintf(
		"Wonderful! %s cuisine has many excellent options perfect for pregnancy.\n\n"+
			"Have you been diagnosed with any pregnancy-related conditions? Select all that apply:\n\n%s",
		profile.CulturalPreference, numberedOptions(models.PregnancyConditions))
}

func (f *ConversationFlow) handlePregnancyConditions(profile *models.UserProfile, body string) string {
	selections, result := parseSelections(body, len(models.PregnancyConditions))
	switch result {
	case parseNonNumeric:
		return "Please enter valid numbers for your pregnancy conditions."
	case parseOutOfRange:
		return fmt.Sprintf("Please enter valid numbers between 1 and %d.", len(models.PregnancyConditions))
	}

	profile.PregnancyConditions = nil
	hasOther := false
	selectedNames := make([]string, 0, len(selections))
	for _, s := range selections {
		name := models.PregnancyConditions[s-1]
		selectedNames = append(selectedNames, name)
		if name == "Other" {
			hasOther = true
		}
		if name != "None" {
			profile.PregnancyConditions = append(profile.PregnancyConditions, name)
		}
	}

	if hasOther {
		profile.State = models.StateAwaitingOtherConditions
		return "You selected Other – tell me a bit more about your condition so I can tailor suggestions."
	}

	profile.State = models.StateAwaitingUsagePreferences
	confirmation := "No specific conditions noted."
	if len(profile.PregnancyConditions) > 0 {
		confirmation = fmt.Sprintf("I'll focus on options to support %s.", strings.Join(selectedNames, ", "))
	}
	return fmt.Sprintf(
		"Thanks – %s\n\nHow would you like to use MamáMind? Choose your preferences:\n\n%s",
		confirmation, numberedOptions(models.UsagePreferences))
}

func (f *ConversationFlow) handleOtherConditions(profile *models.UserProfile, body string) string {
	profile.OtherCondition = strings.TrimSpace(body)
	profile.State = models.StateAwaitingUsagePreferences
	return "Thank you for telling me – I'll keep that in mind.\n\n" +
		"How would you like to use MamáMind? Choose your preferences:\n\n" + numberedOptions(models.UsagePreferences)
}

func (f *ConversationFlow) handleUsagePreferences(profile *models.UserProfile, body string) string {
	if strings.TrimSpace(body) == "5" {
		profile.WantsMealPlans = true
		profile.WantsNutritionTips = true
		profile.WantsRecipes = true
		profile.WantsNutritionQA = true
	} else {
		selections, result := parseSelections(body, len(models.UsagePreferences))
		switch result {
		case parseNonNumeric:
			return "Please enter valid numbers for your usage preferences."
		case parseOutOfRange:
			return fmt.Sprintf("Please enter valid numbers between 1 and %d.", len(models.UsagePreferences))
		}
		profile.WantsMealPlans = containsInt(selections, 1)
		profile.WantsNutritionTips = containsInt(selections, 2)
		profile.WantsRecipes = containsInt(selections, 3)
		profile.WantsNutritionQA = containsInt(selections, 4)
	}

	profile.State = models.StateCompletedOnboarding

	summary := profileSummary(profile)
	if profile.WantsMealPlans {
		return fmt.Sprintf(
			"Perfect! Your profile is set up. Based on your information:\n\n%s\n\n"+
				"Let me generate your first meal plan. Type 'Generate meal plan' anytime to get a new one.", summary)
	}
	return fmt.Sprintf(
		"Perfect! Your profile is set up. Based on your information:\n\n%s\n\n"+
			"You can ask me nutrition questions anytime. Just type your question!", summary)
}

func (f *ConversationFlow) handleConfirmReset(profile *models.UserProfile, lower string) string {
	if lower == "yes" {
		profile.Reset()
		return f.handleOnboardingStart(profile)
	}
	profile.State = models.StateCompletedOnboarding
	return "No problem – your preferences are unchanged. Ask me anything about pregnancy nutrition!"
}

func (f *ConversationFlow) handleMealPlanDay(ctx context.Context, profile *models.UserProfile, body string) string {
	latest, err := f.store.GetLatestMealPlan(profile.Phone)
	if err != nil {
		slog.Error("ConversationFlow failed to load latest plan", "error", err, "phone", profile.Phone)
		return msgGenericApology
	}
	if latest == nil {
		profile.State = models.StateCompletedOnboarding
		return "I don't have a meal plan generated for you yet. Type 'Generate meal plan' to create one."
	}

	day, found := latest.Plan.FindDay(body)
	if !found {
		// Unmatched input lists the available days and stays in this state.
		return fmt.Sprintf(
			"I couldn't find that day in your plan. Available days:\n\n🗓️ %s",
			strings.Join(latest.Plan.DayNames(), " | "))
	}

	tip := mealplan.CleanTip(mealplan.DeriveTip(day, *profile))
	profile.State = models.StateAwaitingShareConfirmation
	return mealplan.RenderDay(day, tip) +
		"\n\nWould you like a shareable summary of this plan? Reply YES to get one."
}

func (f *ConversationFlow) handleShareConfirmation(profile *models.UserProfile, lower string) string {
	profile.State = models.StateCompletedOnboarding
	if lower != "yes" {
		return "No problem! Ask me anything about pregnancy nutrition, or type 'Generate meal plan' for a fresh plan."
	}

	latest, err := f.store.GetLatestMealPlan(profile.Phone)
	if err != nil || latest == nil {
		slog.Error("ConversationFlow failed to load plan for sharing", "error", err, "phone", profile.Phone)
		return msgGenericApology
	}
	return mealplan.RenderShareText(latest.Plan)
}

// generateMealPlan produces a fresh plan. Without a messenger, generation runs
// inline and the summary is the reply. With one, the reply acknowledges the
// request and the summary is pushed when generation finishes, keeping the
// webhook response fast.
func (f *ConversationFlow) generateMealPlan(ctx context.Context, profile *models.UserProfile) string {
	if f.messenger == nil {
		_, summary, err := f.generator.Generate(ctx, *profile)
		if err != nil {
			slog.Error("ConversationFlow meal plan generation failed", "error", err, "phone", profile.Phone)
			return msgPlanApology
		}
		profile.State = models.StateAwaitingMealPlanDay
		return summary
	}

	go f.generateAndDeliver(*profile)
	return msgPlanPending
}

// generateAndDeliver runs off the inbound request. The profile snapshot is
// re-read before the state update so a concurrent save is not clobbered
// (last write still wins).
func (f *ConversationFlow) generateAndDeliver(profile models.UserProfile) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, summary, err := f.generator.Generate(ctx, profile)
	if err != nil {
		slog.Error("ConversationFlow background plan generation failed", "error", err, "phone", profile.Phone)
		if sendErr := f.messenger.SendMessage(ctx, profile.Phone, msgPlanApology); sendErr != nil {
			slog.Error("ConversationFlow failed to deliver plan apology", "error", sendErr, "phone", profile.Phone)
		}
		return
	}

	if fresh, loadErr := f.store.GetUserProfile(profile.Phone); loadErr == nil && fresh != nil {
		fresh.State = models.StateAwaitingMealPlanDay
		if saveErr := f.store.SaveUserProfile(*fresh); saveErr != nil {
			slog.Error("ConversationFlow failed to save state after plan", "error", saveErr, "phone", profile.Phone)
		}
	}
	if err := f.messenger.SendMessage(ctx, profile.Phone, summary); err != nil {
		slog.Error("ConversationFlow failed to deliver plan summary", "error", err, "phone", profile.Phone)
	}
}

// Package models defines conversation state types for MamaMind.
package models

// ConversationState identifies where a user is in the conversation flow.
type ConversationState string

const (
	// StateOnboardingStart greets the user and asks the first question.
	StateOnboardingStart ConversationState = "ONBOARDING_START"
	// StateAwaitingTrimester waits for a trimester selection (1-3).
	StateAwaitingTrimester ConversationState = "AWAITING_TRIMESTER"
	// StateAwaitingDietaryPreferences waits for dietary preference indices.
	StateAwaitingDietaryPreferences ConversationState = "AWAITING_DIETARY_PREFERENCES"
	// StateAwaitingOtherDietary waits for free-text dietary details after "Other".
	StateAwaitingOtherDietary ConversationState = "AWAITING_OTHER_DIETARY"
	// StateAwaitingAllergies waits for allergy text or "none".
	StateAwaitingAllergies ConversationState = "AWAITING_ALLERGIES"
	// StateAwaitingCulturalPreferences waits for cuisine/cultural preference text.
	StateAwaitingCulturalPreferences ConversationState = "AWAITING_CULTURAL_PREFERENCES"
	// StateAwaitingPregnancyConditions waits for pregnancy condition indices.
	StateAwaitingPregnancyConditions ConversationState = "AWAITING_PREGNANCY_CONDITIONS"
	// StateAwaitingOtherConditions waits for free-text condition details after "Other".
	StateAwaitingOtherConditions ConversationState = "AWAITING_OTHER_CONDITIONS"
	// StateAwaitingUsagePreferences waits for usage preference indices.
	StateAwaitingUsagePreferences ConversationState = "AWAITING_USAGE_PREFERENCES"
	// StateCompletedOnboarding is the resting state; free text routes to Q&A.
	StateCompletedOnboarding ConversationState = "COMPLETED_ONBOARDING"
	// StateAwaitingMealPlanDay waits for a weekday selection from the latest plan.
	StateAwaitingMealPlanDay ConversationState = "AWAITING_MEAL_PLAN_DAY"
	// StateAwaitingShareConfirmation waits for a yes/no on sharing the plan summary.
	StateAwaitingShareConfirmation ConversationState = "AWAITING_SHARE_CONFIRMATION"
	// StateConfirmReset waits for a yes/no before wiping the profile.
	StateConfirmReset ConversationState = "CONFIRM_RESET"
)

// allStates lists every defined conversation state for validation.
var allStates = map[ConversationState]bool{
	StateOnboardingStart:             true,
	StateAwaitingTrimester:           true,
	StateAwaitingDietaryPreferences:  true,
	StateAwaitingOtherDietary:        true,
	StateAwaitingAllergies:           true,
	StateAwaitingCulturalPreferences: true,
	StateAwaitingPregnancyConditions: true,
	StateAwaitingOtherConditions:     true,
	StateAwaitingUsagePreferences:    true,
	StateCompletedOnboarding:         true,
	StateAwaitingMealPlanDay:         true,
	StateAwaitingShareConfirmation:   true,
	StateConfirmReset:                true,
}

// IsValidConversationState checks if the given state is one of the defined states.
// The empty state is not valid; profiles start empty before the first "start" message.
func IsValidConversationState(s ConversationState) bool {
	return allStates[s]
}

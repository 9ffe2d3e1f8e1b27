package flow

import (
	"fmt"
	"strings"

	"github.com/mamamind/mamamind/internal/models"
)

// Static reply texts.
const (
	msgGreeting = "👋 Hi! I'm MamáMind, your AI-powered pregnancy nutrition coach. " +
		"Let's create your personalized nutrition journey! 🍎🤰\n\n" +
		"Which trimester are you in?\n" +
		"1. First\n" +
		"2. Second\n" +
		"3. Third"

	msgClosing = "Thank you for using MamáMind! Your preferences have been saved. Type 'Start' anytime to chat again."

	msgConfirmReset = "Are you sure you want to start over? This will clear all your saved preferences. " +
		"Reply YES to confirm, or anything else to keep things as they are."

	msgHelp = "Here's what I can do:\n\n" +
		"• 'Generate meal plan' – a fresh weekly meal plan\n" +
		"• Type a day name after a plan to see its meals\n" +
		"• Ask me any pregnancy nutrition question\n" +
		"• 'Update preferences' – change your profile\n" +
		"• 'Start over' – reset everything\n" +
		"• 'End' – finish for now"

	msgPlanPending = "Got it! I'm putting your meal plan together 🍳 I'll send it over in a moment."

	msgPlanApology = "I'm sorry, I couldn't put your meal plan together right now. Please try again in a few minutes."

	msgQAApology = "I'm sorry, I couldn't generate an answer at this time. Please try again later."

	msgGenericApology = "Sorry, something went wrong. Please try again later."
)

// parseResult classifies a list-selection parse outcome. Bad input is a
// normal outcome here, not an error.
type parseResult int

const (
	parseOK parseResult = iota
	parseNonNumeric
	parseOutOfRange
)

// parseSelections splits comma-separated 1-based indices and validates them
// against the enumeration size.
func parseSelections(body string, max int) ([]int, parseResult) {
	var selections []int
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, parseNonNumeric
		}
		n := 0
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil, parseNonNumeric
			}
			n = n*10 + int(r-'0')
		}
		if n < 1 || n > max {
			return nil, parseOutOfRange
		}
		selections = append(selections, n)
	}
	if len(selections) == 0 {
		return nil, parseNonNumeric
	}
	return selections, parseOK
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

// numberedOptions renders an enumeration as "1. First\n2. Second\n...".
func numberedOptions(options []string) string {
	lines := make([]string, len(options))
	for i, opt := range options {
		lines[i] = fmt.Sprintf("%d. %s", i+1, opt)
	}
	return strings.Join(lines, "\n")
}

// profileSummary builds the checklist shown when onboarding completes.
func profileSummary(profile *models.UserProfile) string {
	dietText := strings.Join(profile.DietaryList(), ", ")
	if dietText == "" {
		dietText = "No dietary restrictions"
	}
	allergiesText := profile.Allergies
	if allergiesText == "" {
		allergiesText = "No allergies"
	}
	conditionsText := strings.Join(profile.ConditionList(), ", ")
	if conditionsText == "" {
		conditionsText = "No specific conditions"
	}
	return fmt.Sprintf(
		"✅ Trimester %d\n✅ %s\n✅ %s\n✅ %s cuisine preference\n✅ %s",
		profile.Trimester, dietText, allergiesText, profile.CulturalPreference, conditionsText)
}

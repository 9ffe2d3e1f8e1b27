package mealplan

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mamamind/mamamind/internal/models"
)

// Message rendering limits tuned for WhatsApp transport.
const (
	// MaxDayMessageLength is the upper bound for a rendered day message.
	MaxDayMessageLength = 1500
	// maxDescriptionLength bounds a single meal description line.
	maxDescriptionLength = 80
)

var mealEmojis = map[string]string{
	models.SlotBreakfast: "🥣",
	models.SlotLunch:     "🍛",
	models.SlotSnack1:    "🍎",
	models.SlotSnack2:    "🍵",
	models.SlotDinner:    "🍲",
}

const defaultMealEmoji = "🍽️"

// RenderDay formats one day's meals as a WhatsApp message with a trailing
// tip line. If the full rendering exceeds the transport budget, it is
// re-rendered with dish names only, then hard-truncated as a last resort.
func RenderDay(day models.Day, tip string) string {
	msg := renderDay(day, tip, true)
	if utf8.RuneCountInString(msg) > MaxDayMessageLength {
		msg = renderDay(day, tip, false)
	}
	if utf8.RuneCountInString(msg) > MaxDayMessageLength {
		msg = truncate(msg, MaxDayMessageLength)
	}
	return msg
}

func renderDay(day models.Day, tip string, withDescriptions bool) string {
	parts := []string{"🗓️ " + day.Name}

	for _, slot := range orderedSlots(day) {
		meal, found := day.Meal(slot)
		if !found || meal.Empty() {
			continue
		}
		emoji, ok := mealEmojis[slot]
		if !ok {
			emoji = defaultMealEmoji
		}
		name := meal.Name
		if name == "" {
			name = "Not specified"
		}
		text := fmt.Sprintf("%s %s: %s", emoji, slot, name)
		if withDescriptions {
			if desc := truncate(meal.Description, maxDescriptionLength); desc != "" {
				text += "\n   " + desc
			}
			if meal.Benefit != "" && len(meal.Benefit) <= maxDescriptionLength {
				text += "\n   💚 " + meal.Benefit
			}
		}
		parts = append(parts, text)
	}

	if tip != "" {
		parts = append(parts, "🧠 Tip: "+tip)
	}
	return strings.Join(parts, "\n\n")
}

// orderedSlots returns the day's slots in display priority order, with
// unrecognized slots appended in arrival order.
func orderedSlots(day models.Day) []string {
	var slots []string
	seen := map[string]bool{}
	for _, slot := range models.MealSlots {
		if _, found := day.Meal(slot); found {
			slots = append(slots, slot)
			seen[strings.ToLower(slot)] = true
		}
	}
	for _, m := range day.Meals {
		key := strings.ToLower(m.Slot)
		if !seen[key] {
			slots = append(slots, m.Slot)
			seen[key] = true
		}
	}
	return slots
}

// RenderSummary produces the condensed plan overview sent right after
// generation.
func RenderSummary(weekNumber int, plan models.WeeklyPlan) string {
	daysText := strings.Join(plan.DayNames(), " | ")
	return fmt.Sprintf("Here's your Week %d Meal Plan 🍽️ (type a day to view details):\n\n🗓️ %s", weekNumber, daysText)
}

// RenderShareText builds a forwardable plain-text summary of the plan's
// last day, without emoji decoration beyond the header.
func RenderShareText(plan models.WeeklyPlan) string {
	if len(plan.Days) == 0 {
		return ""
	}
	day := plan.Days[len(plan.Days)-1]

	var sb strings.Builder
	sb.WriteString("MamáMind meal plan – " + day.Name + "\n")
	for _, slot := range orderedSlots(day) {
		meal, found := day.Meal(slot)
		if !found || meal.Empty() {
			continue
		}
		name := meal.Name
		if name == "" {
			name = "Not specified"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", slot, name))
	}
	sb.WriteString("Shared from MamáMind, your pregnancy nutrition coach.")
	return sb.String()
}

// truncate shortens s to at most max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

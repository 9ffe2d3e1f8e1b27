// Package mealplan generates, normalizes, and formats weekly meal plans.
//
// The normalizer in this file converts unreliable completion output into the
// canonical WeeklyPlan schema. Upstream models return plans as raw JSON,
// fenced markdown blocks, JSON buried in prose or reasoning preambles, or
// plain text, so extraction cascades through several strategies before
// giving up.
package mealplan

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mamamind/mamamind/internal/models"
	"github.com/tidwall/gjson"
)

// ParseError indicates no extraction strategy produced a valid plan.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse meal plan: %s", e.Reason)
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ExtractPlan parses raw completion text into a weekly plan. It tries direct
// JSON, fenced code blocks, reasoning-stripped retries, embedded-object
// scanning, and finally a line-oriented text parser. A *ParseError is
// returned only when no strategy yields at least one valid day.
func ExtractPlan(raw string) (models.WeeklyPlan, error) {
	candidates := []string{raw}

	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	if stripped := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, "")); stripped != raw {
		candidates = append(candidates, stripped)
		if m := fencedJSONRe.FindStringSubmatch(stripped); m != nil {
			candidates = append(candidates, strings.TrimSpace(m[1]))
		}
	}

	for _, candidate := range candidates {
		if plan, ok := decodePlan(candidate); ok {
			return plan, nil
		}
	}

	// JSON object buried in surrounding prose.
	for _, candidate := range candidates {
		if obj, ok := scanEmbeddedObject(candidate); ok {
			if plan, ok := decodePlan(obj); ok {
				return plan, nil
			}
		}
	}

	if plan, ok := parsePlanText(raw); ok {
		slog.Debug("ExtractPlan: fell back to line-oriented parser", "days", len(plan.Days))
		return plan, nil
	}

	slog.Debug("ExtractPlan: all strategies exhausted", "length", len(raw))
	return models.WeeklyPlan{}, &ParseError{Reason: "no strategy yielded a valid day"}
}

// decodePlan parses a JSON candidate and normalizes whatever plan shape it
// holds into the canonical weekday-keyed form.
func decodePlan(candidate string) (models.WeeklyPlan, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || !gjson.Valid(candidate) {
		return models.WeeklyPlan{}, false
	}
	return normalizeRoot(gjson.Parse(candidate))
}

func normalizeRoot(root gjson.Result) (models.WeeklyPlan, bool) {
	if mp := root.Get("meal_plan"); mp.Exists() {
		if plan, ok := normalizeRoot(mp); ok {
			return plan, ok
		}
	}

	var plan models.WeeklyPlan

	switch {
	case root.Get("days").IsArray():
		root.Get("days").ForEach(func(_, v gjson.Result) bool {
			if day, ok := normalizeDay("", v); ok {
				plan.Days = append(plan.Days, day)
			}
			return true
		})
	case root.IsArray():
		root.ForEach(func(_, v gjson.Result) bool {
			if day, ok := normalizeDay("", v); ok {
				plan.Days = append(plan.Days, day)
			}
			return true
		})
	case root.IsObject():
		// Plans keyed by weekday name or ordinal index ("day_1".."day_7").
		root.ForEach(func(k, v gjson.Result) bool {
			name := dayNameFromKey(k.String())
			if name == "" {
				return true
			}
			if day, ok := normalizeDay(name, v); ok {
				plan.Days = append(plan.Days, day)
			}
			return true
		})
	}

	return plan, len(plan.Days) > 0
}

// dayNameFromKey maps an object key to a weekday name, or "" if the key does
// not look like a day at all.
func dayNameFromKey(key string) string {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, wd := range weekdays {
		if strings.Contains(normalized, strings.ToLower(wd)) {
			return wd
		}
	}
	// Ordinal forms: "day_1", "day 1", "day1".
	trimmed := strings.TrimPrefix(normalized, "day")
	trimmed = strings.Trim(trimmed, "_ -")
	if len(trimmed) == 1 && trimmed[0] >= '1' && trimmed[0] <= '7' {
		return weekdays[trimmed[0]-'1']
	}
	return ""
}

func normalizeDay(fallbackName string, v gjson.Result) (models.Day, bool) {
	day := models.Day{Name: fallbackName}
	if n := v.Get("day"); n.Exists() {
		if name := dayNameFromKey(n.String()); name != "" {
			day.Name = name
		} else if s := strings.TrimSpace(n.String()); s != "" {
			day.Name = s
		}
	}
	if day.Name == "" {
		return day, false
	}

	meals := v.Get("meals")
	if !meals.Exists() {
		meals = v
	}

	switch {
	case meals.IsArray():
		meals.ForEach(func(_, mv gjson.Result) bool {
			slot := canonicalSlot(mv.Get("slot").String())
			if slot == "" {
				slot = canonicalSlot(mv.Get("meal").String())
			}
			if slot == "" {
				slot = canonicalSlot(mv.Get("type").String())
			}
			if m, ok := normalizeMeal(slot, mv); ok {
				day.Meals = append(day.Meals, m)
			}
			return true
		})
	case meals.IsObject():
		snacks := 0
		meals.ForEach(func(k, mv gjson.Result) bool {
			key := strings.ToLower(strings.TrimSpace(k.String()))
			if key == "day" || key == "tip" {
				return true
			}
			if key == "snacks" && mv.IsArray() {
				mv.ForEach(func(_, sv gjson.Result) bool {
					snacks++
					if m, ok := normalizeMeal(snackSlot(snacks), sv); ok {
						day.Meals = append(day.Meals, m)
					}
					return true
				})
				return true
			}
			slot := canonicalSlot(k.String())
			if slot == models.SlotSnack1 || slot == models.SlotSnack2 {
				snacks++
				slot = snackSlot(snacks)
			}
			if m, ok := normalizeMeal(slot, mv); ok {
				day.Meals = append(day.Meals, m)
			}
			return true
		})
	}

	sortMealsBySlot(day.Meals)
	return day, day.Valid()
}

// normalizeMeal accepts either a bare string (dish name only) or an object
// with name/description and optional benefit, recipe, and citation fields.
func normalizeMeal(slot string, v gjson.Result) (models.Meal, bool) {
	if slot == "" {
		return models.Meal{}, false
	}
	m := models.Meal{Slot: slot}
	if v.Type == gjson.String {
		m.Name = strings.TrimSpace(v.String())
		return m, !m.Empty()
	}
	if !v.IsObject() {
		return m, false
	}
	m.Name = strings.TrimSpace(firstString(v, "name", "dish", "meal_name", "title"))
	m.Description = strings.TrimSpace(firstString(v, "description", "details", "ingredients"))
	m.Benefit = strings.TrimSpace(firstString(v, "benefit", "nutritional_benefit", "benefits", "nutrition"))
	m.Recipe = strings.TrimSpace(firstString(v, "recipe", "preparation"))
	if c := v.Get("citations"); c.IsArray() {
		c.ForEach(func(_, cv gjson.Result) bool {
			if s := strings.TrimSpace(cv.String()); s != "" {
				m.Citations = append(m.Citations, s)
			}
			return true
		})
	}
	return m, !m.Empty()
}

func firstString(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		if r := v.Get(key); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	return ""
}

// canonicalSlot maps an arbitrary slot label onto one of the five fixed
// meal slots, or "" if the label is unrecognizable.
func canonicalSlot(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "":
		return ""
	case strings.Contains(normalized, "breakfast"):
		return models.SlotBreakfast
	case strings.Contains(normalized, "lunch"):
		return models.SlotLunch
	case strings.Contains(normalized, "dinner"), strings.Contains(normalized, "supper"):
		return models.SlotDinner
	case strings.Contains(normalized, "snack"):
		if strings.Contains(normalized, "2") || strings.Contains(normalized, "afternoon") || strings.Contains(normalized, "evening") {
			return models.SlotSnack2
		}
		return models.SlotSnack1
	}
	return ""
}

func snackSlot(n int) string {
	if n >= 2 {
		return models.SlotSnack2
	}
	return models.SlotSnack1
}

// slotRank orders meals by display priority; unrecognized slots sort last
// in their original order.
func slotRank(slot string) int {
	for i, s := range models.MealSlots {
		if s == slot {
			return i
		}
	}
	return len(models.MealSlots)
}

func sortMealsBySlot(meals []models.Meal) {
	// Insertion sort keeps equal-rank meals in arrival order.
	for i := 1; i < len(meals); i++ {
		for j := i; j > 0 && slotRank(meals[j].Slot) < slotRank(meals[j-1].Slot); j-- {
			meals[j], meals[j-1] = meals[j-1], meals[j]
		}
	}
}

// scanEmbeddedObject returns the first balanced brace-delimited object in
// text that carries a plan-like top-level key.
func scanEmbeddedObject(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}
		obj := text[start : end+1]
		if !gjson.Valid(obj) {
			continue
		}
		parsed := gjson.Parse(obj)
		if parsed.Get("days").Exists() || parsed.Get("meal_plan").Exists() {
			return obj, true
		}
	}
	return "", false
}

// matchBrace finds the index of the brace closing text[start], skipping
// string literals and escapes.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// parsePlanText is the last-resort parser for plain-text responses. Weekday
// names open a new day, meal-type labels open a new meal, and any other
// line is folded into the preceding meal's description.
func parsePlanText(text string) (models.WeeklyPlan, bool) {
	var plan models.WeeklyPlan
	var day *models.Day
	snacks := 0

	flush := func() {
		if day != nil && day.Valid() {
			sortMealsBySlot(day.Meals)
			plan.Days = append(plan.Days, *day)
		}
		day = nil
		snacks = 0
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*#-"))
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if name := weekdayInLine(lower); name != "" {
			flush()
			day = &models.Day{Name: name}
			continue
		}
		if day == nil {
			continue
		}

		label, content, found := splitMealLine(line)
		if found {
			slot := canonicalSlot(label)
			if slot == models.SlotSnack1 || slot == models.SlotSnack2 {
				snacks++
				slot = snackSlot(snacks)
			}
			if slot != "" && content != "" {
				day.Meals = append(day.Meals, models.Meal{Slot: slot, Name: content})
				continue
			}
			if slot != "" {
				// Label with no dish on the same line; wait for the next one.
				continue
			}
		}

		// Continuation line: extend the last meal's description.
		if n := len(day.Meals); n > 0 {
			last := &day.Meals[n-1]
			if last.Description == "" {
				last.Description = line
			} else {
				last.Description += " " + line
			}
		}
	}
	flush()

	return plan, len(plan.Days) > 0
}

func weekdayInLine(lower string) string {
	for _, wd := range weekdays {
		if strings.Contains(lower, strings.ToLower(wd)) {
			return wd
		}
	}
	return ""
}

// splitMealLine splits "Breakfast: Millet porridge" into label and content.
func splitMealLine(line string) (label, content string, found bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		lower := strings.ToLower(line)
		for _, slot := range models.MealSlots {
			if strings.Contains(lower, strings.ToLower(slot)) || strings.Contains(lower, "snack") {
				return line, "", true
			}
		}
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

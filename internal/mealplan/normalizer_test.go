package mealplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/mamamind/mamamind/internal/models"
)

func fullPlanJSON() string {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var dayObjs []string
	for _, d := range days {
		dayObjs = append(dayObjs, fmt.Sprintf(`{
			"day": %q,
			"meals": {
				"Breakfast": {"name": "Millet porridge", "description": "with groundnuts"},
				"Lunch": {"name": "Jollof rice", "description": "with grilled tilapia"},
				"Snack 1": {"name": "Apple slices"},
				"Snack 2": {"name": "Herbal tea", "description": "ginger"},
				"Dinner": {"name": "Bean stew", "description": "with plantain", "benefit": "rich in fiber"}
			}
		}`, d))
	}
	return `{"days": [` + strings.Join(dayObjs, ",") + `]}`
}

func TestExtractPlanDirectJSON(t *testing.T) {
	plan, err := ExtractPlan(fullPlanJSON())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(plan.Days))
	}
	for _, day := range plan.Days {
		if len(day.Meals) != 5 {
			t.Fatalf("expected 5 meals for %s, got %d", day.Name, len(day.Meals))
		}
		for i, slot := range models.MealSlots {
			if day.Meals[i].Slot != slot {
				t.Errorf("%s meal %d: expected slot %q, got %q", day.Name, i, slot, day.Meals[i].Slot)
			}
		}
	}
	dinner, ok := plan.Days[0].Meal(models.SlotDinner)
	if !ok || dinner.Benefit != "rich in fiber" {
		t.Errorf("expected dinner benefit to survive, got %+v", dinner)
	}
}

func TestExtractPlanFencedBlock(t *testing.T) {
	raw := "Here is your plan:\n```json\n" + fullPlanJSON() + "\n```\nEnjoy!"
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 7 {
		t.Errorf("expected 7 days, got %d", len(plan.Days))
	}
}

func TestExtractPlanReasoningPreamble(t *testing.T) {
	raw := "<think>\nThe user is vegetarian so I should avoid meat...\n</think>\n" + fullPlanJSON()
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 7 {
		t.Errorf("expected 7 days, got %d", len(plan.Days))
	}
}

func TestExtractPlanEmbeddedObject(t *testing.T) {
	raw := "Sure! Based on your profile I suggest the following. " + fullPlanJSON() + " Let me know if you need swaps."
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 7 {
		t.Errorf("expected 7 days, got %d", len(plan.Days))
	}
}

func TestExtractPlanOrdinalDayKeys(t *testing.T) {
	raw := `{"meal_plan": {
		"day_1": {"meals": {"breakfast": {"name": "Oats"}, "lunch": {"name": "Rice"}}},
		"day_2": {"meals": {"breakfast": {"name": "Eggs"}, "dinner": {"name": "Soup"}}}
	}}`
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(plan.Days))
	}
	if plan.Days[0].Name != "Monday" || plan.Days[1].Name != "Tuesday" {
		t.Errorf("expected ordinal keys mapped to weekdays, got %q and %q", plan.Days[0].Name, plan.Days[1].Name)
	}
}

func TestExtractPlanLowercaseSnacksArray(t *testing.T) {
	raw := `{"days": [{
		"day": "Monday",
		"meals": {
			"breakfast": {"name": "Porridge"},
			"snacks": [{"name": "Banana"}, {"name": "Nuts"}],
			"dinner": {"name": "Stew"}
		}
	}]}`
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := plan.Days[0]
	if _, ok := day.Meal(models.SlotSnack1); !ok {
		t.Error("expected first snack mapped to Snack 1")
	}
	if snack2, ok := day.Meal(models.SlotSnack2); !ok || snack2.Name != "Nuts" {
		t.Errorf("expected second snack mapped to Snack 2, got %+v", snack2)
	}
}

func TestExtractPlanTextFallback(t *testing.T) {
	raw := `Monday
Breakfast: Millet porridge
with groundnuts and banana
Lunch: Jollof rice with tilapia
Snack: Apple slices
Dinner: Bean stew

Tuesday
Breakfast: Oat pancakes
Dinner: Vegetable soup`
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(plan.Days))
	}
	breakfast, ok := plan.Days[0].Meal(models.SlotBreakfast)
	if !ok || breakfast.Name != "Millet porridge" {
		t.Fatalf("unexpected breakfast: %+v", breakfast)
	}
	if breakfast.Description != "with groundnuts and banana" {
		t.Errorf("expected continuation line folded into description, got %q", breakfast.Description)
	}
}

func TestExtractPlanGarbage(t *testing.T) {
	var parseErr *ParseError
	_, err := ExtractPlan("I'm sorry, I cannot help with that request.")
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %v", err)
	}
}

func TestExtractPlanIdempotent(t *testing.T) {
	plan, err := ExtractPlan(fullPlanJSON())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	canonical, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	again, err := ExtractPlan(string(canonical))
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	if !reflect.DeepEqual(plan, again) {
		t.Error("re-parsing canonical output changed the plan")
	}
}

func TestExtractPlanDropsInvalidDays(t *testing.T) {
	raw := `{"days": [
		{"day": "Monday", "meals": {"Breakfast": {"name": "Porridge"}}},
		{"day": "Tuesday", "meals": {}},
		{"meals": {"Breakfast": {"name": "Orphan"}}}
	]}`
	plan, err := ExtractPlan(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Days) != 1 || plan.Days[0].Name != "Monday" {
		t.Errorf("expected only Monday to survive, got %+v", plan.Days)
	}
}

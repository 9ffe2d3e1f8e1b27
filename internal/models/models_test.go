package models

import "testing"

func TestUserProfileValidate(t *testing.T) {
	p := &UserProfile{Phone: "15551234567", State: StateAwaitingTrimester}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Phone = ""
	if err := p.Validate(); err != ErrEmptyPhoneNumber {
		t.Errorf("expected ErrEmptyPhoneNumber, got %v", err)
	}

	p.Phone = "15551234567"
	p.State = "SOMETHING_ELSE"
	if err := p.Validate(); err != ErrInvalidState {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	p.State = ""
	p.Trimester = 4
	if err := p.Validate(); err != ErrInvalidTrimester {
		t.Errorf("expected ErrInvalidTrimester, got %v", err)
	}
}

func TestUserProfileReset(t *testing.T) {
	p := &UserProfile{
		Phone:               "15551234567",
		Trimester:           2,
		DietaryPreferences:  []string{"Vegan", "Other"},
		OtherDietary:        "pescatarian weekends",
		Allergies:           "peanuts",
		CulturalPreference:  "West African",
		PregnancyConditions: []string{"Anemia or low iron"},
		WantsMealPlans:      true,
		WantsNutritionTips:  true,
		WantsRecipes:        true,
		WantsNutritionQA:    true,
		State:               StateCompletedOnboarding,
	}
	p.Reset()

	if p.Trimester != 0 || p.Allergies != "" || p.CulturalPreference != "" {
		t.Errorf("expected scalar fields cleared, got %+v", p)
	}
	if len(p.DietaryPreferences) != 0 || len(p.PregnancyConditions) != 0 {
		t.Errorf("expected preference sets cleared, got %+v", p)
	}
	if p.WantsMealPlans || p.WantsNutritionTips || p.WantsRecipes || p.WantsNutritionQA {
		t.Errorf("expected usage flags cleared, got %+v", p)
	}
	if p.State != "" {
		t.Errorf("expected state cleared, got %q", p.State)
	}
	if p.Phone != "15551234567" {
		t.Errorf("identity should survive reset, got %q", p.Phone)
	}
}

func TestDietaryListSubstitutesOther(t *testing.T) {
	p := &UserProfile{DietaryPreferences: []string{"Vegetarian", "Other"}, OtherDietary: "low FODMAP"}
	got := p.DietaryList()
	if len(got) != 2 || got[0] != "Vegetarian" || got[1] != "low FODMAP" {
		t.Errorf("unexpected dietary list: %v", got)
	}
}

func TestHasCondition(t *testing.T) {
	p := &UserProfile{PregnancyConditions: []string{"Gestational diabetes"}}
	if !p.HasCondition("gestational diabetes") {
		t.Error("expected case-insensitive condition match")
	}
	if p.HasCondition("Hypertension") {
		t.Error("did not expect hypertension match")
	}
}

func TestFindDayPrefixMatch(t *testing.T) {
	plan := WeeklyPlan{Days: []Day{
		{Name: "Monday", Meals: []Meal{{Slot: SlotBreakfast, Name: "Oats"}}},
		{Name: "Tuesday", Meals: []Meal{{Slot: SlotLunch, Name: "Stew"}}},
	}}

	if d, ok := plan.FindDay("tuesday"); !ok || d.Name != "Tuesday" {
		t.Errorf("expected exact case-insensitive match, got %v %v", d, ok)
	}
	if d, ok := plan.FindDay("Mon"); !ok || d.Name != "Monday" {
		t.Errorf("expected prefix match, got %v %v", d, ok)
	}
	if _, ok := plan.FindDay("Friday"); ok {
		t.Error("did not expect a match for Friday")
	}
	if _, ok := plan.FindDay("  "); ok {
		t.Error("did not expect a match for blank input")
	}
}

func TestMealPlanValidate(t *testing.T) {
	mp := &MealPlan{Phone: "15551234567", WeekNumber: 14, Plan: WeeklyPlan{Days: []Day{
		{Name: "Monday", Meals: []Meal{{Slot: SlotBreakfast, Name: "Millet porridge"}}},
	}}}
	if err := mp.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mp.WeekNumber = 41
	if err := mp.Validate(); err != ErrInvalidWeekNumber {
		t.Errorf("expected ErrInvalidWeekNumber, got %v", err)
	}

	mp.WeekNumber = 14
	mp.Plan = WeeklyPlan{Days: []Day{{Name: "Monday", Meals: []Meal{{Slot: SlotBreakfast}}}}}
	if err := mp.Validate(); err != ErrEmptyPlan {
		t.Errorf("expected ErrEmptyPlan, got %v", err)
	}
}

func TestIsValidConversationState(t *testing.T) {
	for _, s := range []ConversationState{
		StateOnboardingStart, StateAwaitingTrimester, StateAwaitingDietaryPreferences,
		StateAwaitingOtherDietary, StateAwaitingAllergies, StateAwaitingCulturalPreferences,
		StateAwaitingPregnancyConditions, StateAwaitingOtherConditions,
		StateAwaitingUsagePreferences, StateCompletedOnboarding,
		StateAwaitingMealPlanDay, StateAwaitingShareConfirmation, StateConfirmReset,
	} {
		if !IsValidConversationState(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if IsValidConversationState("") {
		t.Error("empty state should not be valid")
	}
	if IsValidConversationState("AWAITING_SOMETHING") {
		t.Error("unknown state should not be valid")
	}
}

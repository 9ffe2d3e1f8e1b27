package mealplan

import (
	"strings"
	"testing"

	"github.com/mamamind/mamamind/internal/models"
)

func TestDeriveTipMatchesIngredient(t *testing.T) {
	day := models.Day{Name: "Monday", Meals: []models.Meal{
		{Slot: models.SlotBreakfast, Name: "Millet porridge", Description: "with groundnuts"},
	}}
	tip := DeriveTip(day, models.UserProfile{Phone: "1", Trimester: 1})
	if tip != "Iron essential for preventing anemia - ACOG guidelines" {
		t.Errorf("unexpected tip: %q", tip)
	}
}

func TestDeriveTipFirstMatchWins(t *testing.T) {
	day := models.Day{Name: "Monday", Meals: []models.Meal{
		{Slot: models.SlotLunch, Name: "Spinach salad", Description: "with grilled salmon"},
	}}
	tip := DeriveTip(day, models.UserProfile{Phone: "1"})
	if !strings.HasPrefix(tip, "Folate") {
		t.Errorf("expected spinach to win over salmon, got %q", tip)
	}
}

func TestDeriveTipConditionDefault(t *testing.T) {
	day := models.Day{Name: "Monday", Meals: []models.Meal{
		{Slot: models.SlotLunch, Name: "Mystery dish"},
	}}
	profile := models.UserProfile{Phone: "1", Trimester: 2, PregnancyConditions: []string{"Gestational diabetes"}}
	tip := DeriveTip(day, profile)
	if !strings.HasPrefix(tip, "Fiber") || !strings.Contains(tip, "ADA") {
		t.Errorf("expected gestational-diabetes fiber default, got %q", tip)
	}
}

func TestDeriveTipTrimesterDefaults(t *testing.T) {
	day := models.Day{Name: "Monday", Meals: []models.Meal{{Slot: models.SlotLunch, Name: "Mystery dish"}}}

	tip := DeriveTip(day, models.UserProfile{Phone: "1", Trimester: 3})
	if !strings.HasPrefix(tip, "Calcium") {
		t.Errorf("expected calcium default in trimester 3, got %q", tip)
	}

	tip = DeriveTip(day, models.UserProfile{Phone: "1", Trimester: 1})
	if !strings.HasPrefix(tip, "Iron") {
		t.Errorf("expected iron default, got %q", tip)
	}
}

func TestCleanTipStripsBracketTags(t *testing.T) {
	got := CleanTip("[1] Drink plenty of water [source: ACOG]")
	if got != "Drink plenty of water." {
		t.Errorf("unexpected cleaned tip: %q", got)
	}
}

func TestCleanTipFirstSentenceTruncation(t *testing.T) {
	long := "Eat iron-rich foods daily. " + strings.Repeat("More detail about absorption and supplements. ", 10)
	got := CleanTip(long)
	if got != "Eat iron-rich foods daily." {
		t.Errorf("expected first-sentence truncation, got %q", got)
	}
}

func TestCleanTipHardTruncation(t *testing.T) {
	long := strings.Repeat("no sentence boundary here ", 20)
	got := CleanTip(long)
	if len([]rune(got)) > MaxTipLength+1 {
		t.Errorf("tip too long after truncation: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}

func TestCleanTipTerminalPunctuation(t *testing.T) {
	if got := CleanTip("Stay hydrated"); got != "Stay hydrated." {
		t.Errorf("expected terminal period, got %q", got)
	}
	if got := CleanTip("Stay hydrated!"); got != "Stay hydrated!" {
		t.Errorf("existing punctuation should be kept, got %q", got)
	}
}

func TestCleanTipEmpty(t *testing.T) {
	if got := CleanTip("  [tag]  "); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

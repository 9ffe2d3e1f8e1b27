// Package models defines the core data structures for MamaMind.
//
// It includes the user nutrition profile, weekly meal plans, the Q&A
// conversation log, and nutrition tips, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Fixed enumerations presented during onboarding. Order is significant:
// users reply with 1-based indices into these lists.
var (
	// DietaryPreferences are the selectable dietary restriction options.
	DietaryPreferences = []string{"Vegetarian", "Vegan", "Gluten-free", "Dairy-free", "No restrictions", "Other"}
	// PregnancyConditions are the selectable pregnancy-related conditions.
	PregnancyConditions = []string{"Anemia or low iron", "Gestational diabetes", "Hypertension", "Morning sickness", "None", "Other"}
	// UsagePreferences are the selectable ways to use the assistant.
	UsagePreferences = []string{"Weekly meal plans", "Daily nutrition tips", "Recipe suggestions", "Nutrition Q&A", "All of the above"}
)

// Meal slot names in display priority order.
const (
	SlotBreakfast = "Breakfast"
	SlotSnack1    = "Snack 1"
	SlotLunch     = "Lunch"
	SlotSnack2    = "Snack 2"
	SlotDinner    = "Dinner"
)

// MealSlots lists the five fixed meal slots in display priority order.
var MealSlots = []string{SlotBreakfast, SlotSnack1, SlotLunch, SlotSnack2, SlotDinner}

// Validation constants.
const (
	// MinWeekNumber is the first pregnancy week a plan can be tagged with.
	MinWeekNumber = 1
	// MaxWeekNumber is the last pregnancy week a plan can be tagged with.
	MaxWeekNumber = 40
)

// Error variables for better error handling and testability.
var (
	ErrEmptyPhoneNumber   = errors.New("phone number cannot be empty")
	ErrInvalidState       = errors.New("conversation state is not a defined state")
	ErrInvalidTrimester   = errors.New("trimester must be 1, 2, or 3")
	ErrInvalidWeekNumber  = errors.New("week number must be between 1 and 40")
	ErrEmptyPlan          = errors.New("meal plan contains no valid days")
	ErrEmptyConversation  = errors.New("conversation question cannot be empty")
)

// UserProfile holds a user's onboarding answers and preferences.
// The phone number is the unique key.
type UserProfile struct {
	Phone               string            `json:"phone"`
	Trimester           int               `json:"trimester"` // 1-3, 0 means unset
	DietaryPreferences  []string          `json:"dietary_preferences,omitempty"`
	OtherDietary        string            `json:"other_dietary,omitempty"`
	Allergies           string            `json:"allergies,omitempty"` // empty means none
	CulturalPreference  string            `json:"cultural_preference,omitempty"`
	PregnancyConditions []string          `json:"pregnancy_conditions,omitempty"`
	OtherCondition      string            `json:"other_condition,omitempty"`
	WantsMealPlans      bool              `json:"wants_meal_plans"`
	WantsNutritionTips  bool              `json:"wants_nutrition_tips"`
	WantsRecipes        bool              `json:"wants_recipe_suggestions"`
	WantsNutritionQA    bool              `json:"wants_nutrition_qa"`
	State               ConversationState `json:"conversation_state,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	LastActive          time.Time         `json:"last_active"`
}

// Validate checks profile invariants before persistence.
func (p *UserProfile) Validate() error {
	if p.Phone == "" {
		return ErrEmptyPhoneNumber
	}
	if p.State != "" && !IsValidConversationState(p.State) {
		return ErrInvalidState
	}
	if p.Trimester < 0 || p.Trimester > 3 {
		return ErrInvalidTrimester
	}
	return nil
}

// Reset clears all onboarding answers and preferences back to defaults.
// The conversation state is cleared too; callers set the next state explicitly.
func (p *UserProfile) Reset() {
	p.Trimester = 0
	p.DietaryPreferences = nil
	p.OtherDietary = ""
	p.Allergies = ""
	p.CulturalPreference = ""
	p.PregnancyConditions = nil
	p.OtherCondition = ""
	p.WantsMealPlans = false
	p.WantsNutritionTips = false
	p.WantsRecipes = false
	p.WantsNutritionQA = false
	p.State = ""
}

// DietaryList returns the selected dietary preferences with any free-text
// "Other" entry substituted in.
func (p *UserProfile) DietaryList() []string {
	return mergeOther(p.DietaryPreferences, p.OtherDietary)
}

// ConditionList returns the selected pregnancy conditions with any free-text
// "Other" entry substituted in.
func (p *UserProfile) ConditionList() []string {
	return mergeOther(p.PregnancyConditions, p.OtherCondition)
}

// HasCondition reports whether the given condition name was selected,
// matching case-insensitively.
func (p *UserProfile) HasCondition(name string) bool {
	for _, c := range p.ConditionList() {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func mergeOther(selected []string, other string) []string {
	if other == "" {
		return append([]string(nil), selected...)
	}
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		if s == "Other" {
			out = append(out, other)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Meal is a single dish in a day's meal slot.
type Meal struct {
	Slot        string   `json:"slot"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Benefit     string   `json:"benefit,omitempty"`
	Recipe      string   `json:"recipe,omitempty"`
	Citations   []string `json:"citations,omitempty"`
}

// Empty reports whether the meal carries no usable content.
func (m Meal) Empty() bool {
	return strings.TrimSpace(m.Name) == "" && strings.TrimSpace(m.Description) == ""
}

// Day is one day of a weekly plan with its ordered meals.
type Day struct {
	Name  string `json:"day"`
	Meals []Meal `json:"meals"`
}

// Meal returns the meal occupying the named slot, if present.
func (d Day) Meal(slot string) (Meal, bool) {
	for _, m := range d.Meals {
		if strings.EqualFold(m.Slot, slot) {
			return m, true
		}
	}
	return Meal{}, false
}

// Valid reports whether the day has at least one non-empty meal slot.
func (d Day) Valid() bool {
	for _, m := range d.Meals {
		if !m.Empty() {
			return true
		}
	}
	return false
}

// WeeklyPlan is the canonical normalized shape of a generated meal plan.
type WeeklyPlan struct {
	Days []Day `json:"days"`
}

// DayNames returns the day names in plan order.
func (w *WeeklyPlan) DayNames() []string {
	names := make([]string, 0, len(w.Days))
	for _, d := range w.Days {
		names = append(names, d.Name)
	}
	return names
}

// FindDay returns the day matching the given name, first exactly
// (case-insensitive) and then by case-insensitive prefix.
func (w *WeeklyPlan) FindDay(name string) (Day, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Day{}, false
	}
	for _, d := range w.Days {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	lower := strings.ToLower(name)
	for _, d := range w.Days {
		if strings.HasPrefix(strings.ToLower(d.Name), lower) {
			return d, true
		}
	}
	return Day{}, false
}

// MealPlan is a stored weekly plan. At most one plan exists per
// (user, week number); regeneration overwrites rather than duplicates.
type MealPlan struct {
	Phone      string     `json:"phone"`
	WeekNumber int        `json:"week_number"`
	CreatedAt  time.Time  `json:"created_at"`
	Plan       WeeklyPlan `json:"plan"`
}

// Validate checks plan invariants before persistence.
func (mp *MealPlan) Validate() error {
	if mp.Phone == "" {
		return ErrEmptyPhoneNumber
	}
	if mp.WeekNumber < MinWeekNumber || mp.WeekNumber > MaxWeekNumber {
		return ErrInvalidWeekNumber
	}
	for _, d := range mp.Plan.Days {
		if d.Valid() {
			return nil
		}
	}
	return ErrEmptyPlan
}

// Conversation is one Q&A exchange in the write-only audit log.
type Conversation struct {
	ID       string    `json:"id"`
	Phone    string    `json:"phone"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Time     time.Time `json:"time"`
}

// Validate checks conversation invariants before persistence.
func (c *Conversation) Validate() error {
	if c.Phone == "" {
		return ErrEmptyPhoneNumber
	}
	if c.Question == "" {
		return ErrEmptyConversation
	}
	return nil
}

// NutritionTip is a generated daily tip kept for the record.
type NutritionTip struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	Trimester int       `json:"trimester,omitempty"` // 0 means all trimesters
	CreatedAt time.Time `json:"created_at"`
}

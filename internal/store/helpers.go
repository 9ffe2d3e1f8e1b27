package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mamamind/mamamind/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeStringList marshals a string slice for a nullable text column.
func encodeStringList(list []string) (interface{}, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

// decodeStringList unmarshals a nullable text column into a string slice.
func decodeStringList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw.String), &list); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	return list, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// profileColumns is the select list matching scanProfile's field order.
const profileColumns = `phone, trimester, dietary_preferences, other_dietary, allergies,
	cultural_preference, pregnancy_conditions, other_condition,
	wants_meal_plans, wants_nutrition_tips, wants_recipe_suggestions, wants_nutrition_qa,
	conversation_state, created_at, last_active`

// scanProfile reads one user_profiles row into a UserProfile.
func scanProfile(row rowScanner) (models.UserProfile, error) {
	var p models.UserProfile
	var dietary, conditions, otherDietary, allergies, cultural, otherCondition, state sql.NullString
	err := row.Scan(
		&p.Phone, &p.Trimester, &dietary, &otherDietary, &allergies,
		&cultural, &conditions, &otherCondition,
		&p.WantsMealPlans, &p.WantsNutritionTips, &p.WantsRecipes, &p.WantsNutritionQA,
		&state, &p.CreatedAt, &p.LastActive,
	)
	if err != nil {
		return p, err
	}
	if p.DietaryPreferences, err = decodeStringList(dietary); err != nil {
		return p, err
	}
	if p.PregnancyConditions, err = decodeStringList(conditions); err != nil {
		return p, err
	}
	p.OtherDietary = otherDietary.String
	p.Allergies = allergies.String
	p.CulturalPreference = cultural.String
	p.OtherCondition = otherCondition.String
	p.State = models.ConversationState(state.String)
	return p, nil
}

// scanMealPlan reads one meal_plans row into a MealPlan, decoding the JSON plan column.
func scanMealPlan(row rowScanner) (models.MealPlan, error) {
	var mp models.MealPlan
	var planJSON string
	if err := row.Scan(&mp.Phone, &mp.WeekNumber, &planJSON, &mp.CreatedAt); err != nil {
		return mp, err
	}
	if err := json.Unmarshal([]byte(planJSON), &mp.Plan); err != nil {
		return mp, fmt.Errorf("failed to decode stored plan: %w", err)
	}
	return mp, nil
}

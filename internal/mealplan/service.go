package mealplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mamamind/mamamind/internal/genai"
	"github.com/mamamind/mamamind/internal/models"
	"github.com/mamamind/mamamind/internal/store"
	"github.com/mamamind/mamamind/internal/util"
)

// Generation retry policy for the upstream completion service.
const (
	maxGenerateAttempts = 3
	generateRetryDelay  = 2 * time.Second
)

// ErrGenerationFailed indicates all generation attempts were exhausted
// without producing a valid plan. Nothing is persisted in that case.
var ErrGenerationFailed = errors.New("meal plan generation failed")

const planSystemPrompt = "You are a pregnancy nutrition expert. Respond with a valid JSON structure containing a meal plan. " +
	"Your response should be parseable JSON only: a top-level \"days\" array with 7 entries, each entry holding a " +
	"\"day\" weekday name and a \"meals\" object keyed by Breakfast, Lunch, Snack 1, Snack 2 and Dinner, " +
	"where every meal has a \"name\", a \"description\" and an optional \"benefit\". Do not include any text outside the JSON."

// Generator produces, validates and persists weekly meal plans.
type Generator struct {
	store      store.Store
	ai         genai.CompletionClient
	model      string
	retryDelay time.Duration
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel overrides the completion model used for plan generation.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) { g.model = model }
}

// WithRetryDelay overrides the fixed delay between generation attempts.
func WithRetryDelay(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.retryDelay = d }
}

// NewGenerator creates a plan generator backed by the given store and
// completion client.
func NewGenerator(st store.Store, ai genai.CompletionClient, opts ...GeneratorOption) *Generator {
	g := &Generator{store: st, ai: ai, retryDelay: generateRetryDelay}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate requests a fresh weekly plan for the user, normalizes and
// validates it, overwrites any cached plan for the derived week, and returns
// the stored plan together with a chat-ready summary line.
//
// The week number is re-rolled from the user's trimester band on every call.
// On failure nothing is persisted and ErrGenerationFailed is returned.
func (g *Generator) Generate(ctx context.Context, profile models.UserProfile) (*models.MealPlan, string, error) {
	week := util.WeekNumberForTrimester(profile.Trimester)
	prompt := buildPlanPrompt(profile)
	slog.Debug("Generator.Generate: requesting plan", "phone", profile.Phone, "week", week)

	var plan models.WeeklyPlan
	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		raw, err := g.complete(ctx, prompt)
		if err == nil {
			plan, err = extractValidPlan(raw)
			if err == nil {
				break
			}
		}
		lastErr = err
		slog.Debug("Generator.Generate: attempt failed", "phone", profile.Phone, "attempt", attempt, "error", err)
		if attempt == maxGenerateAttempts {
			slog.Error("Generator.Generate: all attempts exhausted", "phone", profile.Phone, "error", lastErr)
			return nil, "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(g.retryDelay):
		}
	}

	mp := models.MealPlan{
		Phone:      profile.Phone,
		WeekNumber: week,
		CreatedAt:  time.Now(),
		Plan:       plan,
	}
	if err := g.store.SaveMealPlan(mp); err != nil {
		return nil, "", fmt.Errorf("failed to save generated plan: %w", err)
	}
	slog.Debug("Generator.Generate: plan saved", "phone", profile.Phone, "week", week, "days", len(plan.Days))
	return &mp, RenderSummary(week, plan), nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	var opts []genai.CompleteOption
	if g.model != "" {
		opts = append(opts, genai.WithModelHint(g.model))
	}
	return g.ai.Complete(ctx, planSystemPrompt, prompt, opts...)
}

// extractValidPlan normalizes raw completion text and drops invalid days.
func extractValidPlan(raw string) (models.WeeklyPlan, error) {
	plan, err := ExtractPlan(raw)
	if err != nil {
		return models.WeeklyPlan{}, err
	}
	valid := models.WeeklyPlan{}
	for _, d := range plan.Days {
		if d.Valid() {
			valid.Days = append(valid.Days, d)
		}
	}
	if len(valid.Days) == 0 {
		return models.WeeklyPlan{}, &ParseError{Reason: "no valid days after validation"}
	}
	return valid, nil
}

// buildPlanPrompt assembles the profile-specific generation request.
func buildPlanPrompt(profile models.UserProfile) string {
	trimester := profile.Trimester
	if trimester == 0 {
		trimester = 1
	}
	return fmt.Sprintf(
		"Generate a detailed 7-day meal plan for a pregnant woman with the following profile:\n"+
			"- Trimester: %d\n"+
			"- Dietary Preferences: %s\n"+
			"- Allergies/Intolerances: %s\n"+
			"- Cultural Food Preferences: %s\n"+
			"- Pregnancy Conditions: %s\n\n"+
			"For each day, include Breakfast, Lunch, two snacks and Dinner. For each meal include the name of the dish, "+
			"a brief description or key ingredients, and note any nutritional benefits relevant to pregnancy. "+
			"Tailor everything to the specified dietary needs and cultural preferences.",
		trimester,
		strings.Join(profile.DietaryList(), ", "),
		profile.Allergies,
		profile.CulturalPreference,
		strings.Join(profile.ConditionList(), ", "),
	)
}

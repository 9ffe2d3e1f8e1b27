// Package notify implements the scheduled outreach sweep: daily nutrition
// tips, behavioral nudges, and the Monday weekly meal plan.
//
// The sweep iterates all known users sequentially and isolates failures per
// user, so one broken profile or delivery error never aborts the batch.
// Idempotency is the caller's responsibility.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mamamind/mamamind/internal/genai"
	"github.com/mamamind/mamamind/internal/mealplan"
	"github.com/mamamind/mamamind/internal/messaging"
	"github.com/mamamind/mamamind/internal/models"
	"github.com/mamamind/mamamind/internal/store"
)

// nudges is the static rotation of behavioral reminders, distinct from
// nutrition tips.
var nudges = []string{
	"Time for a glass of water! Staying hydrated supports your baby's growth.",
	"Have you had a serving of fruit or vegetables yet today?",
	"A short walk after meals can help with digestion and energy.",
	"Remember your prenatal vitamin with today's meal.",
	"Small frequent meals can keep nausea and energy dips at bay.",
}

// SweepResult summarizes one sweep over all users.
type SweepResult struct {
	Users      int `json:"users"`
	TipsSent   int `json:"tips_sent"`
	NudgesSent int `json:"nudges_sent"`
	PlansSent  int `json:"plans_sent"`
	Failures   int `json:"failures"`
}

// Sweeper performs the periodic outreach sweep.
type Sweeper struct {
	store     store.Store
	msg       messaging.Service
	ai        genai.CompletionClient
	generator *mealplan.Generator
	now       func() time.Time
}

// NewSweeper creates a sweeper with its collaborators.
func NewSweeper(st store.Store, msg messaging.Service, ai genai.CompletionClient, generator *mealplan.Generator) *Sweeper {
	return &Sweeper{store: st, msg: msg, ai: ai, generator: generator, now: time.Now}
}

// Run performs one sweep: a daily tip and a nudge for every opted-in user,
// plus a fresh weekly plan on Mondays for users who want meal plans.
func (s *Sweeper) Run(ctx context.Context) SweepResult {
	var result SweepResult

	profiles, err := s.store.ListUserProfiles()
	if err != nil {
		slog.Error("Sweeper failed to list profiles", "error", err)
		result.Failures++
		return result
	}
	result.Users = len(profiles)
	isMonday := s.now().Weekday() == time.Monday

	for _, profile := range profiles {
		if err := s.sweepUser(ctx, profile, isMonday, &result); err != nil {
			slog.Error("Sweeper user failed", "error", err, "phone", profile.Phone)
			result.Failures++
		}
	}

	slog.Debug("Sweeper run complete", "users", result.Users, "tips", result.TipsSent,
		"nudges", result.NudgesSent, "plans", result.PlansSent, "failures", result.Failures)
	return result
}

func (s *Sweeper) sweepUser(ctx context.Context, profile models.UserProfile, isMonday bool, result *SweepResult) error {
	if profile.WantsNutritionTips {
		if err := s.sendDailyTip(ctx, profile); err != nil {
			return fmt.Errorf("daily tip: %w", err)
		}
		result.TipsSent++
	}

	if err := s.sendNudge(ctx, profile); err != nil {
		return fmt.Errorf("nudge: %w", err)
	}
	result.NudgesSent++

	if isMonday && profile.WantsMealPlans {
		if err := s.sendWeeklyPlan(ctx, profile); err != nil {
			return fmt.Errorf("weekly plan: %w", err)
		}
		result.PlansSent++
	}
	return nil
}

const tipSystemPrompt = "You are a pregnancy nutrition expert. Format your response as a short title " +
	"followed by 2-3 sentences of content and the source."

// sendDailyTip generates a personalized tip, records it, and delivers it.
// A completion failure falls back to a generic tip rather than skipping the
// user.
func (s *Sweeper) sendDailyTip(ctx context.Context, profile models.UserProfile) error {
	tip := s.generateTip(ctx, profile)

	if err := s.store.AddNutritionTip(tip); err != nil {
		slog.Error("Sweeper failed to record tip", "error", err, "phone", profile.Phone)
	}

	body := "🌿 Tip of the Day: " + tip.Content
	if tip.Source != "" {
		body += "\n\n👩‍⚕️ Source: " + tip.Source
	}
	return s.msg.SendMessage(ctx, profile.Phone, body)
}

func (s *Sweeper) generateTip(ctx context.Context, profile models.UserProfile) models.NutritionTip {
	fallback := models.NutritionTip{
		Title:     "Daily Nutrition Tip",
		Content:   "Remember to stay hydrated and eat a variety of nutrient-rich foods.",
		Source:    "General pregnancy nutrition guidelines",
		Trimester: profile.Trimester,
		CreatedAt: s.now(),
	}

	conditionFocus := "general pregnancy nutrition"
	if conditions := profile.ConditionList(); len(conditions) > 0 {
		conditionFocus = conditions[0]
	}
	prompt := fmt.Sprintf(
		"Generate a practical daily nutrition tip for a pregnant woman in trimester %d with a focus on %s. "+
			"The tip should be actionable, specific, and backed by medical evidence. "+
			"Include a reputable source for the information.",
		profile.Trimester, conditionFocus)

	raw, err := s.ai.Complete(ctx, tipSystemPrompt, prompt)
	if err != nil {
		slog.Error("Sweeper tip generation failed, using fallback", "error", err, "phone", profile.Phone)
		return fallback
	}

	tip := parseTip(raw)
	tip.Trimester = profile.Trimester
	tip.CreatedAt = s.now()
	if tip.Content == "" {
		return fallback
	}
	return tip
}

// parseTip splits free-form tip text into title, content and source lines.
func parseTip(raw string) models.NutritionTip {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return models.NutritionTip{}
	}

	title := lines[0]
	if idx := strings.Index(title, ":"); idx >= 0 {
		title = strings.TrimSpace(title[idx+1:])
	}

	var content, source string
	switch {
	case len(lines) > 2:
		last := lines[len(lines)-1]
		if strings.Contains(strings.ToLower(last), "source") {
			source = last
			content = strings.Join(lines[1:len(lines)-1], " ")
		} else {
			content = strings.Join(lines[1:], " ")
		}
	case len(lines) == 2:
		content = lines[1]
	default:
		content = title
	}

	return models.NutritionTip{
		Title:   title,
		Content: mealplan.CleanTip(content),
		Source:  strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(source, "Source:"), "source:")),
	}
}

// sendNudge delivers the day's entry from the static nudge rotation.
func (s *Sweeper) sendNudge(ctx context.Context, profile models.UserProfile) error {
	nudge := nudges[s.now().YearDay()%len(nudges)]
	return s.msg.SendMessage(ctx, profile.Phone, "⏰ "+nudge)
}

// sendWeeklyPlan generates a fresh plan and pushes the summary, leaving the
// user ready to pick a day.
func (s *Sweeper) sendWeeklyPlan(ctx context.Context, profile models.UserProfile) error {
	_, summary, err := s.generator.Generate(ctx, profile)
	if err != nil {
		return err
	}

	profile.State = models.StateAwaitingMealPlanDay
	if err := s.store.SaveUserProfile(profile); err != nil {
		slog.Error("Sweeper failed to update state after plan", "error", err, "phone", profile.Phone)
	}
	return s.msg.SendMessage(ctx, profile.Phone, summary)
}

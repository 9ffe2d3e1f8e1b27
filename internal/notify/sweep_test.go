package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mamamind/mamamind/internal/genai"
	"github.com/mamamind/mamamind/internal/mealplan"
	"github.com/mamamind/mamamind/internal/models"
	"github.com/mamamind/mamamind/internal/store"
)

// monday and tuesday anchor the weekday-dependent behavior.
var (
	monday  = time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
)

type mockAI struct {
	responses []string
	errs      []error
	prompts   []string
}

func (m *mockAI) Complete(_ context.Context, _ string, userPrompt string, _ ...genai.CompleteOption) (string, error) {
	m.prompts = append(m.prompts, userPrompt)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(m.responses) == 0 {
		return "", errors.New("no response queued")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// recorderService records sent messages and can fail for selected recipients.
type recorderService struct {
	sent      map[string][]string
	failFor   string
	stopped   bool
	documents int
}

func newRecorder() *recorderService {
	return &recorderService{sent: make(map[string][]string)}
}

func (r *recorderService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (r *recorderService) SendMessage(_ context.Context, to, body string) error {
	if r.failFor != "" && to == r.failFor {
		return errors.New("delivery failed")
	}
	r.sent[to] = append(r.sent[to], body)
	return nil
}

func (r *recorderService) SendDocument(_ context.Context, to string, _ []byte, _ string) error {
	r.documents++
	return nil
}

func (r *recorderService) Start(context.Context) error { return nil }
func (r *recorderService) Stop() error                 { r.stopped = true; return nil }

const tipResponse = "Title: Iron for Energy\n" +
	"Pair iron-rich foods like beans with vitamin C sources to boost absorption.\n" +
	"Source: ACOG nutrition guidelines"

func validPlanJSON() string {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var entries []string
	for _, d := range days {
		entries = append(entries, fmt.Sprintf(
			`{"day":%q,"meals":{"Breakfast":{"name":"Oats","description":"with fruit"},"Lunch":{"name":"Jollof rice"},"Dinner":{"name":"Light soup"}}}`, d))
	}
	return `{"days":[` + strings.Join(entries, ",") + `]}`
}

func testProfile(phone string) models.UserProfile {
	return models.UserProfile{
		Phone:              phone,
		State:              models.StateCompletedOnboarding,
		Trimester:          2,
		WantsNutritionTips: true,
		WantsMealPlans:     true,
		CreatedAt:          time.Now(),
	}
}

func newSweeper(st store.Store, msg *recorderService, ai *mockAI, now time.Time) *Sweeper {
	gen := mealplan.NewGenerator(st, ai, mealplan.WithRetryDelay(0))
	s := NewSweeper(st, msg, ai, gen)
	s.now = func() time.Time { return now }
	return s
}

func TestSweepSendsTipAndNudge(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveUserProfile(testProfile("15551234567")); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
	ai := &mockAI{responses: []string{tipResponse}}
	msg := newRecorder()

	result := newSweeper(st, msg, ai, tuesday).Run(context.Background())

	if result.Failures != 0 {
		t.Fatalf("expected no failures, got %d", result.Failures)
	}
	if result.TipsSent != 1 || result.NudgesSent != 1 || result.PlansSent != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
	sent := msg.sent["15551234567"]
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if !strings.HasPrefix(sent[0], "🌿 Tip of the Day: ") {
		t.Errorf("unexpected tip message %q", sent[0])
	}
	if !strings.Contains(sent[0], "👩‍⚕️ Source: ACOG nutrition guidelines") {
		t.Errorf("tip missing source: %q", sent[0])
	}
	if !strings.HasPrefix(sent[1], "⏰ ") {
		t.Errorf("unexpected nudge message %q", sent[1])
	}
	tips := st.GetNutritionTips()
	if len(tips) != 1 {
		t.Fatalf("expected 1 recorded tip, got %d", len(tips))
	}
	if tips[0].Title != "Iron for Energy" {
		t.Errorf("unexpected tip title %q", tips[0].Title)
	}
}

func TestSweepSkipsTipWhenOptedOut(t *testing.T) {
	st := store.NewInMemoryStore()
	profile := testProfile("15551234567")
	profile.WantsNutritionTips = false
	profile.WantsMealPlans = false
	if err := st.SaveUserProfile(profile); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
	ai := &mockAI{}
	msg := newRecorder()

	result := newSweeper(st, msg, ai, tuesday).Run(context.Background())

	if result.TipsSent != 0 {
		t.Errorf("expected no tips, got %d", result.TipsSent)
	}
	if result.NudgesSent != 1 {
		t.Errorf("expected nudge anyway, got %d", result.NudgesSent)
	}
	if len(ai.prompts) != 0 {
		t.Errorf("expected no completion calls, got %d", len(ai.prompts))
	}
}

func TestSweepTipFallsBackOnGenerationError(t *testing.T) {
	st := store.NewInMemoryStore()
	profile := testProfile("15551234567")
	profile.WantsMealPlans = false
	if err := st.SaveUserProfile(profile); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
	ai := &mockAI{errs: []error{errors.New("upstream down")}}
	msg := newRecorder()

	result := newSweeper(st, msg, ai, tuesday).Run(context.Background())

	if result.Failures != 0 {
		t.Fatalf("generation error should not count as sweep failure: %+v", result)
	}
	sent := msg.sent["15551234567"]
	if len(sent) == 0 || !strings.Contains(sent[0], "Remember to stay hydrated") {
		t.Errorf("expected fallback tip, got %v", sent)
	}
}

func TestSweepSendsWeeklyPlanOnMonday(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveUserProfile(testProfile("15551234567")); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
	ai := &mockAI{responses: []string{tipResponse, validPlanJSON()}}
	msg := newRecorder()

	result := newSweeper(st, msg, ai, monday).Run(context.Background())

	if result.PlansSent != 1 {
		t.Fatalf("expected 1 plan sent, got %+v", result)
	}
	sent := msg.sent["15551234567"]
	if len(sent) != 3 {
		t.Fatalf("expected tip, nudge and plan, got %d messages", len(sent))
	}
	if !strings.Contains(sent[2], "Meal Plan 🍽️") {
		t.Errorf("unexpected plan summary %q", sent[2])
	}
	plan, err := st.GetLatestMealPlan("15551234567")
	if err != nil || plan == nil {
		t.Fatalf("expected persisted plan, got %v, %v", plan, err)
	}
	saved, err := st.GetUserProfile("15551234567")
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	if saved.State != models.StateAwaitingMealPlanDay {
		t.Errorf("expected state %s, got %s", models.StateAwaitingMealPlanDay, saved.State)
	}
}

func TestSweepSkipsPlanOffMonday(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveUserProfile(testProfile("15551234567")); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
	ai := &mockAI{responses: []string{tipResponse}}
	msg := newRecorder()

	result := newSweeper(st, msg, ai, tuesday).Run(context.Background())

	if result.PlansSent != 0 {
		t.Errorf("expected no plans off Monday, got %d", result.PlansSent)
	}
}

func TestSweepIsolatesPerUserFailures(t *testing.T) {
	st := store.NewInMemoryStore()
	broken := testProfile("15550000001")
	healthy := testProfile("15550000002")
	broken.WantsMealPlans = false
	healthy.WantsMealPlans = false
	for _, p := range []models.UserProfile{broken, healthy} {
		if err := st.SaveUserProfile(p); err != nil {
			t.Fatalf("failed to save profile: %v", err)
		}
	}
	ai := &mockAI{responses: []string{tipResponse}}
	msg := newRecorder()
	msg.failFor = "15550000001"

	result := newSweeper(st, msg, ai, tuesday).Run(context.Background())

	if result.Failures != 1 {
		t.Fatalf("expected exactly 1 failure, got %+v", result)
	}
	if len(msg.sent["15550000002"]) != 2 {
		t.Errorf("healthy user should still receive tip and nudge, got %v", msg.sent["15550000002"])
	}
}

func TestParseTip(t *testing.T) {
	tip := parseTip(tipResponse)
	if tip.Title != "Iron for Energy" {
		t.Errorf("unexpected title %q", tip.Title)
	}
	if !strings.Contains(tip.Content, "iron-rich foods") {
		t.Errorf("unexpected content %q", tip.Content)
	}
	if tip.Source != "ACOG nutrition guidelines" {
		t.Errorf("unexpected source %q", tip.Source)
	}
}

func TestParseTipSingleLine(t *testing.T) {
	tip := parseTip("Eat more leafy greens for folate.")
	if tip.Content != "Eat more leafy greens for folate." {
		t.Errorf("unexpected content %q", tip.Content)
	}
	if tip.Source != "" {
		t.Errorf("expected empty source, got %q", tip.Source)
	}
}

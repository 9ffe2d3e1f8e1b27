// Package store provides storage backends for MamaMind.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/mamamind/mamamind/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveUserProfile inserts or updates a profile keyed by phone number.
func (s *PostgresStore) SaveUserProfile(p models.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	dietary, err := encodeStringList(p.DietaryPreferences)
	if err != nil {
		return err
	}
	conditions, err := encodeStringList(p.PregnancyConditions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO user_profiles (
		phone, trimester, dietary_preferences, other_dietary, allergies,
		cultural_preference, pregnancy_conditions, other_condition,
		wants_meal_plans, wants_nutrition_tips, wants_recipe_suggestions, wants_nutrition_qa,
		conversation_state, created_at, last_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (phone) DO UPDATE SET
		trimester = EXCLUDED.trimester,
		dietary_preferences = EXCLUDED.dietary_preferences,
		other_dietary = EXCLUDED.other_dietary,
		allergies = EXCLUDED.allergies,
		cultural_preference = EXCLUDED.cultural_preference,
		pregnancy_conditions = EXCLUDED.pregnancy_conditions,
		other_condition = EXCLUDED.other_condition,
		wants_meal_plans = EXCLUDED.wants_meal_plans,
		wants_nutrition_tips = EXCLUDED.wants_nutrition_tips,
		wants_recipe_suggestions = EXCLUDED.wants_recipe_suggestions,
		wants_nutrition_qa = EXCLUDED.wants_nutrition_qa,
		conversation_state = EXCLUDED.conversation_state,
		last_active = EXCLUDED.last_active`,
		p.Phone, p.Trimester, dietary, nilIfEmpty(p.OtherDietary), nilIfEmpty(p.Allergies),
		nilIfEmpty(p.CulturalPreference), conditions, nilIfEmpty(p.OtherCondition),
		p.WantsMealPlans, p.WantsNutritionTips, p.WantsRecipes, p.WantsNutritionQA,
		nilIfEmpty(string(p.State)), p.CreatedAt, p.LastActive)
	if err != nil {
		slog.Error("PostgresStore SaveUserProfile failed", "error", err, "phone", p.Phone)
		return fmt.Errorf("failed to save profile for %s: %w", p.Phone, err)
	}
	slog.Debug("PostgresStore SaveUserProfile succeeded", "phone", p.Phone, "state", p.State)
	return nil
}

// GetUserProfile returns the profile for a phone number, or nil if unseen.
func (s *PostgresStore) GetUserProfile(phone string) (*models.UserProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileColumns+` FROM user_profiles WHERE phone = $1`, phone)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserProfile failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load profile for %s: %w", phone, err)
	}
	return &p, nil
}

// ListUserProfiles returns all known profiles, most recently active first.
func (s *PostgresStore) ListUserProfiles() ([]models.UserProfile, error) {
	rows, err := s.db.Query(`SELECT ` + profileColumns + ` FROM user_profiles ORDER BY last_active DESC`)
	if err != nil {
		slog.Error("PostgresStore ListUserProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("PostgresStore ListUserProfiles scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	slog.Debug("PostgresStore ListUserProfiles succeeded", "count", len(profiles))
	return profiles, nil
}

// SaveMealPlan creates or overwrites the plan for (phone, week number).
func (s *PostgresStore) SaveMealPlan(mp models.MealPlan) error {
	if err := mp.Validate(); err != nil {
		return err
	}
	if mp.CreatedAt.IsZero() {
		mp.CreatedAt = time.Now()
	}
	planJSON, err := json.Marshal(mp.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO meal_plans (phone, week_number, plan_data, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (phone, week_number) DO UPDATE SET
		plan_data = EXCLUDED.plan_data,
		created_at = EXCLUDED.created_at`,
		mp.Phone, mp.WeekNumber, string(planJSON), mp.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveMealPlan failed", "error", err, "phone", mp.Phone, "week", mp.WeekNumber)
		return fmt.Errorf("failed to save plan for %s week %d: %w", mp.Phone, mp.WeekNumber, err)
	}
	slog.Debug("PostgresStore SaveMealPlan succeeded", "phone", mp.Phone, "week", mp.WeekNumber)
	return nil
}

// GetMealPlan returns the plan for (phone, week number), or nil if absent.
func (s *PostgresStore) GetMealPlan(phone string, week int) (*models.MealPlan, error) {
	row := s.db.QueryRow(`SELECT phone, week_number, plan_data, created_at FROM meal_plans WHERE phone = $1 AND week_number = $2`, phone, week)
	mp, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetMealPlan failed", "error", err, "phone", phone, "week", week)
		return nil, fmt.Errorf("failed to load plan for %s week %d: %w", phone, week, err)
	}
	return &mp, nil
}

// GetLatestMealPlan returns the most recently created plan for a user, or nil.
func (s *PostgresStore) GetLatestMealPlan(phone string) (*models.MealPlan, error) {
	row := s.db.QueryRow(`SELECT phone, week_number, plan_data, created_at FROM meal_plans WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`, phone)
	mp, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetLatestMealPlan failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load latest plan for %s: %w", phone, err)
	}
	return &mp, nil
}

// AddConversation appends one Q&A exchange to the audit log.
func (s *PostgresStore) AddConversation(c models.Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO conversations (id, phone, question, answer, time) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Phone, c.Question, nilIfEmpty(c.Answer), c.Time)
	if err != nil {
		slog.Error("PostgresStore AddConversation failed", "error", err, "phone", c.Phone)
		return fmt.Errorf("failed to insert conversation for %s: %w", c.Phone, err)
	}
	return nil
}

// AddNutritionTip records a generated daily tip.
func (s *PostgresStore) AddNutritionTip(t models.NutritionTip) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO nutrition_tips (title, content, source, trimester, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.Title, t.Content, nilIfEmpty(t.Source), t.Trimester, t.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddNutritionTip failed", "error", err)
		return fmt.Errorf("failed to insert nutrition tip: %w", err)
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}

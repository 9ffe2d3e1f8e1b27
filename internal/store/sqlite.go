// Package store provides storage backends for MamaMind.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/mamamind/mamamind/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveUserProfile inserts or updates a profile keyed by phone number.
func (s *SQLiteStore) SaveUserProfile(p models.UserProfile) error {
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
	_, err = s.db.Exec(`INSERT OR REPLACE INTO user_profiles (
		phone, trimester, dietary_preferences, other_dietary, allergies,
		cultural_preference, pregnancy_conditions, other_condition,
		wants_meal_plans, wants_nutrition_tips, wants_recipe_suggestions, wants_nutrition_qa,
		conversation_state, created_at, last_active
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Phone, p.Trimester, dietary, nilIfEmpty(p.OtherDietary), nilIfEmpty(p.Allergies),
		nilIfEmpty(p.CulturalPreference), conditions, nilIfEmpty(p.OtherCondition),
		p.WantsMealPlans, p.WantsNutritionTips, p.WantsRecipes, p.WantsNutritionQA,
		nilIfEmpty(string(p.State)), p.CreatedAt, p.LastActive)
	if err != nil {
		slog.Error("SQLiteStore SaveUserProfile failed", "error", err, "phone", p.Phone)
		return fmt.Errorf("failed to save profile for %s: %w", p.Phone, err)
	}
	slog.Debug("SQLiteStore SaveUserProfile succeeded", "phone", p.Phone, "state", p.State)
	return nil
}

// GetUserProfile returns the profile for a phone number, or nil if unseen.
func (s *SQLiteStore) GetUserProfile(phone string) (*models.UserProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileColumns+` FROM user_profiles WHERE phone = ?`, phone)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserProfile failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load profile for %s: %w", phone, err)
	}
	return &p, nil
}

// ListUserProfiles returns all known profiles, most recently active first.
func (s *SQLiteStore) ListUserProfiles() ([]models.UserProfile, error) {
	rows, err := s.db.Query(`SELECT ` + profileColumns + ` FROM user_profiles ORDER BY last_active DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListUserProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			slog.Error("SQLiteStore ListUserProfiles scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	slog.Debug("SQLiteStore ListUserProfiles succeeded", "count", len(profiles))
	return profiles, nil
}

// SaveMealPlan creates or overwrites the plan for (phone, week number).
func (s *SQLiteStore) SaveMealPlan(mp models.MealPlan) error {
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
	_, err = s.db.Exec(`INSERT OR REPLACE INTO meal_plans (phone, week_number, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		mp.Phone, mp.WeekNumber, string(planJSON), mp.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveMealPlan failed", "error", err, "phone", mp.Phone, "week", mp.WeekNumber)
		return fmt.Errorf("failed to save plan for %s week %d: %w", mp.Phone, mp.WeekNumber, err)
	}
	slog.Debug("SQLiteStore SaveMealPlan succeeded", "phone", mp.Phone, "week", mp.WeekNumber)
	return nil
}

// GetMealPlan returns the plan for (phone, week number), or nil if absent.
func (s *SQLiteStore) GetMealPlan(phone string, week int) (*models.MealPlan, error) {
	row := s.db.QueryRow(`SELECT phone, week_number, plan_data, created_at FROM meal_plans WHERE phone = ? AND week_number = ?`, phone, week)
	mp, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetMealPlan failed", "error", err, "phone", phone, "week", week)
		return nil, fmt.Errorf("failed to load plan for %s week %d: %w", phone, week, err)
	}
	return &mp, nil
}

// GetLatestMealPlan returns the most recently created plan for a user, or nil.
func (s *SQLiteStore) GetLatestMealPlan(phone string) (*models.MealPlan, error) {
	row := s.db.QueryRow(`SELECT phone, week_number, plan_data, created_at FROM meal_plans WHERE phone = ? ORDER BY created_at DESC LIMIT 1`, phone)
	mp, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetLatestMealPlan failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load latest plan for %s: %w", phone, err)
	}
	return &mp, nil
}

// AddConversation appends one Q&A exchange to the audit log.
func (s *SQLiteStore) AddConversation(c models.Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO conversations (id, phone, question, answer, time) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Phone, c.Question, nilIfEmpty(c.Answer), c.Time)
	if err != nil {
		slog.Error("SQLiteStore AddConversation failed", "error", err, "phone", c.Phone)
		return fmt.Errorf("failed to insert conversation for %s: %w", c.Phone, err)
	}
	return nil
}

// AddNutritionTip records a generated daily tip.
func (s *SQLiteStore) AddNutritionTip(t models.NutritionTip) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO nutrition_tips (title, content, source, trimester, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Content, nilIfEmpty(t.Source), t.Trimester, t.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddNutritionTip failed", "error", err)
		return fmt.Errorf("failed to insert nutrition tip: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

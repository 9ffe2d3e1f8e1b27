// Package store provides storage backends for MamaMind.
//
// It includes an in-memory store for tests and SQLite/PostgreSQL backed
// stores for persistent deployments.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mamamind/mamamind/internal/models"
)

// Store defines the persistence operations shared by all backends.
type Store interface {
	// SaveUserProfile inserts or updates a profile keyed by phone number.
	SaveUserProfile(p models.UserProfile) error
	// GetUserProfile returns the profile for a phone number, or nil if unseen.
	GetUserProfile(phone string) (*models.UserProfile, error)
	// ListUserProfiles returns all known profiles, most recently active first.
	ListUserProfiles() ([]models.UserProfile, error)
	// SaveMealPlan creates or overwrites the plan for (phone, week number).
	SaveMealPlan(mp models.MealPlan) error
	// GetMealPlan returns the plan for (phone, week number), or nil if absent.
	GetMealPlan(phone string, week int) (*models.MealPlan, error)
	// GetLatestMealPlan returns the most recently created plan for a user, or nil.
	GetLatestMealPlan(phone string) (*models.MealPlan, error)
	// AddConversation appends one Q&A exchange to the audit log.
	AddConversation(c models.Conversation) error
	// AddNutritionTip records a generated daily tip.
	AddNutritionTip(t models.NutritionTip) error
	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
// Anything that is not recognizably a Postgres URL is treated as a SQLite path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded in-memory Store, used in tests and as a
// fallback when no database is configured.
type InMemoryStore struct {
	mu            sync.RWMutex
	profiles      map[string]models.UserProfile
	plans         map[string]map[int]models.MealPlan // phone -> week -> plan
	conversations []models.Conversation
	tips          []models.NutritionTip
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]models.UserProfile),
		plans:    make(map[string]map[int]models.MealPlan),
	}
}

// SaveUserProfile inserts or updates a profile keyed by phone number.
func (s *InMemoryStore) SaveUserProfile(p models.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Phone] = p
	return nil
}

// GetUserProfile returns the profile for a phone number, or nil if unseen.
func (s *InMemoryStore) GetUserProfile(phone string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[phone]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListUserProfiles returns all known profiles, most recently active first.
func (s *InMemoryStore) ListUserProfiles() ([]models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

// SaveMealPlan creates or overwrites the plan for (phone, week number).
func (s *InMemoryStore) SaveMealPlan(mp models.MealPlan) error {
	if err := mp.Validate(); err != nil {
		return err
	}
	if mp.CreatedAt.IsZero() {
		mp.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	weeks, ok := s.plans[mp.Phone]
	if !ok {
		weeks = make(map[int]models.MealPlan)
		s.plans[mp.Phone] = weeks
	}
	weeks[mp.WeekNumber] = mp
	return nil
}

// GetMealPlan returns the plan for (phone, week number), or nil if absent.
func (s *InMemoryStore) GetMealPlan(phone string, week int) (*models.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.plans[phone][week]
	if !ok {
		return nil, nil
	}
	return &mp, nil
}

// GetLatestMealPlan returns the most recently created plan for a user, or nil.
func (s *InMemoryStore) GetLatestMealPlan(phone string) (*models.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.MealPlan
	for _, mp := range s.plans[phone] {
		mp := mp
		if latest == nil || mp.CreatedAt.After(latest.CreatedAt) {
			latest = &mp
		}
	}
	return latest, nil
}

// AddConversation appends one Q&A exchange to the audit log.
func (s *InMemoryStore) AddConversation(c models.Conversation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, c)
	return nil
}

// GetConversations returns the recorded Q&A log (for tests).
func (s *InMemoryStore) GetConversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Conversation(nil), s.conversations...)
}

// AddNutritionTip records a generated daily tip.
func (s *InMemoryStore) AddNutritionTip(t models.NutritionTip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tips = append(s.tips, t)
	return nil
}

// GetNutritionTips returns the recorded tips (for tests).
func (s *InMemoryStore) GetNutritionTips() []models.NutritionTip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.NutritionTip(nil), s.tips...)
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

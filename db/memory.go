package db

import (
	"context"
	"strings"
	"sync"
)

// MemStore keeps everything in process memory. Used by tests and by
// the MEALBOT_MEMORY mode when no Mongo is around.
type MemStore struct {
	mu         sync.RWMutex
	meals      map[string]Meal
	whitelist  map[string]bool
	checkpoint []byte
}

func NewMemStore() *MemStore {
	return &MemStore{
		meals:     make(map[string]Meal),
		whitelist: make(map[string]bool),
	}
}

func (s *MemStore) AddMeal(_ context.Context, meal Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals[meal.ID] = meal
	return nil
}

func (s *MemStore) GetMeal(_ context.Context, id string) (Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meal, ok := s.meals[id]
	if !ok {
		return Meal{}, ErrNotFound
	}
	return meal, nil
}

func (s *MemStore) GetMeals(_ context.Context) ([]Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meals := make([]Meal, 0, len(s.meals))
	for _, meal := range s.meals {
		meals = append(meals, meal)
	}
	return meals, nil
}

func (s *MemStore) GetMealsByName(_ context.Context, name string) ([]Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var meals []Meal
	for _, meal := range s.meals {
		if strings.EqualFold(meal.Name, name) {
			meals = append(meals, meal)
		}
	}
	return meals, nil
}

func (s *MemStore) UpdateMeal(_ context.Context, meal Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[meal.ID]; !ok {
		return ErrNotFound
	}
	s.meals[meal.ID] = meal
	return nil
}

func (s *MemStore) RemoveMeal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meals[id]; !ok {
		return ErrNotFound
	}
	delete(s.meals, id)
	return nil
}

func (s *MemStore) WhitelistUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelist[username] = true
	return nil
}

func (s *MemStore) IsWhitelisted(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.whitelist[username], nil
}

func (s *MemStore) SaveCheckpoint(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = append([]byte(nil), blob...)
	return nil
}

func (s *MemStore) LoadCheckpoint(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkpoint == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.checkpoint...), nil
}

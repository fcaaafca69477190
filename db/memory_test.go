package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreMealLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	meal := NewMeal("Pizza")
	require.NoError(t, s.AddMeal(ctx, meal))

	got, err := s.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, meal, got)

	meal.Rating = 4
	require.NoError(t, s.UpdateMeal(ctx, meal))
	got, err = s.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)

	require.NoError(t, s.RemoveMeal(ctx, meal.ID))
	_, err = s.GetMeal(ctx, meal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.RemoveMeal(ctx, meal.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateMeal(ctx, meal), ErrNotFound)
}

func TestMemStoreLookupByName(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.AddMeal(ctx, NewMeal("Pizza")))
	require.NoError(t, s.AddMeal(ctx, NewMeal("pizza")))
	require.NoError(t, s.AddMeal(ctx, NewMeal("Soup")))

	meals, err := s.GetMealsByName(ctx, "PIZZA")
	require.NoError(t, err)
	assert.Len(t, meals, 2, "name lookup is case-insensitive")

	all, err := s.GetMeals(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemStoreWhitelist(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	ok, err := s.IsWhitelisted(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WhitelistUser(ctx, "bob"))
	require.NoError(t, s.WhitelistUser(ctx, "bob"), "whitelisting twice is fine")

	ok, err = s.IsWhitelisted(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemStoreCheckpoint(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.LoadCheckpoint(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveCheckpoint(ctx, []byte(`{"polls":[]}`)))
	blob, err := s.LoadCheckpoint(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"polls":[]}`, string(blob))
}

func TestMealRated(t *testing.T) {
	meal := NewMeal("Pizza")
	assert.False(t, meal.Rated())
	meal.Rating = 1
	assert.True(t, meal.Rated())
}

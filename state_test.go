package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	s, store := newTestState()
	ctx := context.Background()

	s.AddPoll(Poll{
		ID:         "p1",
		ExternalID: "ext-1",
		ChatID:     1,
		MessageID:  42,
		Kind:       MealPoll{MealID: "m1", ReplyMessageID: 41},
		KeyboardID: "kb-gone",
	})
	s.AddPoll(Poll{
		ID:     "p2",
		ChatID: 1,
		Kind:   PlanPoll{PlanID: "plan-1"},
	})
	s.Checkpoint(ctx)

	restored := NewState(store, Config{})
	restored.RestoreCheckpoint(ctx)

	p, ok := restored.FindPoll("p1")
	require.True(t, ok)
	assert.Equal(t, "ext-1", p.ExternalID)
	kind, ok := p.Kind.(MealPoll)
	require.True(t, ok)
	assert.Equal(t, "m1", kind.MealID)
	assert.Equal(t, 41, kind.ReplyMessageID)

	p, ok = restored.FindPoll("p2")
	require.True(t, ok)
	plan, ok := p.Kind.(PlanPoll)
	require.True(t, ok)
	assert.Equal(t, "plan-1", plan.PlanID)
}

func TestRestoreCheckpointEmptyStore(t *testing.T) {
	s, _ := newTestState()
	s.RestoreCheckpoint(context.Background())

	_, polls, _ := s.counts()
	assert.Zero(t, polls)
}

func TestRepointPollKeyboardDropsOldGrid(t *testing.T) {
	s, _ := newTestState()

	old := s.Register(NewKeyboard(1, [][]Button{{NewButton("Cancel Vote", CancelPollRating{PollID: "p1"})}}))
	s.AddPoll(Poll{ID: "p1", ChatID: 1, Kind: MealPoll{MealID: "m1"}, KeyboardID: old.ID})

	next := s.Register(NewKeyboard(1, [][]Button{{NewButton("Save Meal", ConfirmPollRating{PollID: "p1"})}}))
	require.True(t, s.RepointPollKeyboard("p1", next.ID))

	_, ok := s.ResolveButton(CorrelationID{Keyboard: old.ID, Button: old.Rows[0][0].ID})
	assert.False(t, ok, "superseded keyboard must stop resolving")
	_, ok = s.ResolveButton(CorrelationID{Keyboard: next.ID, Button: next.Rows[0][0].ID})
	assert.True(t, ok)

	p, ok := s.FindPoll("p1")
	require.True(t, ok)
	assert.Equal(t, next.ID, p.KeyboardID)

	assert.False(t, s.RepointPollKeyboard("missing", next.ID))
}

func TestCancelPollFlags(t *testing.T) {
	s, _ := newTestState()
	s.AddPoll(Poll{ID: "p1", Kind: MealPoll{MealID: "m1"}})

	p, ok := s.CancelPoll("p1")
	require.True(t, ok)
	assert.True(t, p.Canceled)

	p, _ = s.FindPoll("p1")
	assert.True(t, p.Canceled)

	_, ok = s.CancelPoll("missing")
	assert.False(t, ok)
}

func TestFindPollByMealAndPlanID(t *testing.T) {
	s, _ := newTestState()
	s.AddPoll(Poll{ID: "p1", Kind: MealPoll{MealID: "m1"}})
	s.AddPoll(Poll{ID: "p2", Kind: PlanPoll{PlanID: "plan-1"}})

	p, ok := s.FindPollByMealID("m1")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	p, ok = s.FindPollByPlanID("plan-1")
	require.True(t, ok)
	assert.Equal(t, "p2", p.ID)

	_, ok = s.FindPollByMealID("m2")
	assert.False(t, ok)
	_, ok = s.FindPollByPlanID("plan-2")
	assert.False(t, ok)
}

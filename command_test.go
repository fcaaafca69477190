package main

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnlkrs/mealbot/db"
)

func commandMessage(user, text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{UserName: user},
		Chat:      &tgbotapi.Chat{ID: 1},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}
}

func sentTexts(b Batch) []string {
	var texts []string
	for _, item := range b.Items {
		if msg, ok := item.config.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func whitelist(t *testing.T, store db.Store, user string) {
	t.Helper()
	require.NoError(t, store.WhitelistUser(context.Background(), user))
}

func TestParseNewMealArgs(t *testing.T) {
	tests := []struct {
		input   string
		want    newMealArgs
		wantErr error
	}{
		{
			input: "Pizza, 4, cheesy fast, http://example.com",
			want: newMealArgs{
				Name:   "Pizza",
				Rating: 4,
				Tags:   []string{"cheesy", "fast"},
				URL:    "http://example.com",
			},
		},
		{input: "Soup", want: newMealArgs{Name: "Soup"}},
		{input: "Soup, 9", want: newMealArgs{Name: "Soup", Rating: 5}},
		{input: "Soup, 0", want: newMealArgs{Name: "Soup", Rating: 1}},
		{input: "", wantErr: errMealName},
		{input: "  , 3", wantErr: errMealName},
		{input: "Soup, great", wantErr: errRatingNumber},
	}
	for _, tt := range tests {
		got, err := parseNewMealArgs(tt.input)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestWhitelistGate(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()

	batch := HandleCommand(ctx, s, commandMessage("mallory", "/list"))
	assert.Empty(t, batch.Items, "unknown users are ignored")

	batch = HandleCommand(ctx, s, commandMessage("mallory", "/login wrong"))
	require.Len(t, sentTexts(batch), 1)
	assert.Contains(t, sentTexts(batch)[0], "Wrong password!")
	ok, err := store.IsWhitelisted(ctx, "mallory")
	require.NoError(t, err)
	assert.False(t, ok)

	batch = HandleCommand(ctx, s, commandMessage("bob", "/login hunter2"))
	require.Len(t, sentTexts(batch), 1)
	assert.Contains(t, sentTexts(batch)[0], "Welcome!")
	ok, err = store.IsWhitelisted(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	batch = HandleCommand(ctx, s, commandMessage("bob", "/list"))
	require.Len(t, sentTexts(batch), 1)
	assert.Contains(t, sentTexts(batch)[0], "No meals saved!")
}

func TestNewCommandSavesMeal(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()
	whitelist(t, store, "bob")

	batch := HandleCommand(ctx, s, commandMessage("bob", "/new Pizza, 4, cheesy, http://example.com"))
	require.Len(t, batch.Items, 1)

	meals, err := store.GetMealsByName(ctx, "Pizza")
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, 4, meals[0].Rating)
	assert.Equal(t, []string{"cheesy"}, meals[0].Tags)
	assert.Equal(t, "http://example.com", meals[0].URL)

	keyboards, _, _ := s.counts()
	assert.Equal(t, 1, keyboards, "the meal's action grid is registered")
}

func TestPlanCommandRejectsDayCount(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()
	whitelist(t, store, "bob")
	require.NoError(t, store.AddMeal(ctx, db.NewMeal("Pizza")))

	for _, text := range []string{"/plan 1", "/plan 11", "/plan -2"} {
		batch := HandleCommand(ctx, s, commandMessage("bob", text))
		require.Len(t, sentTexts(batch), 1, "command %q", text)
		assert.Contains(t, sentTexts(batch)[0], "between 2 and 10")
		_, _, plans := s.counts()
		assert.Zero(t, plans, "no plan may be persisted for %q", text)
	}

	batch := HandleCommand(ctx, s, commandMessage("bob", "/plan abc"))
	require.Len(t, sentTexts(batch), 1)
	assert.Contains(t, sentTexts(batch)[0], "/plan <days>")
}

func TestPlanCommandStartsPoll(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()
	whitelist(t, store, "bob")
	for _, name := range []string{"Pizza", "Pasta", "Soup"} {
		require.NoError(t, store.AddMeal(ctx, db.NewMeal(name)))
	}

	batch := HandleCommand(ctx, s, commandMessage("bob", "/plan 2"))
	require.Len(t, batch.Items, 1)
	require.NotNil(t, batch.Items[0].poll)
	kind, ok := batch.Items[0].poll.kind.(PlanPoll)
	require.True(t, ok)

	plan, ok := s.FindPlan(kind.PlanID)
	require.True(t, ok)
	assert.Equal(t, 2, plan.Days)

	cfg, ok := batch.Items[0].config.(tgbotapi.SendPollConfig)
	require.True(t, ok)
	assert.Len(t, cfg.Options, 2)
}

func TestRemoveCommandUnknownMeal(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()
	whitelist(t, store, "bob")

	batch := HandleCommand(ctx, s, commandMessage("bob", "/remove Ghost"))
	require.Len(t, sentTexts(batch), 1)
	assert.Contains(t, sentTexts(batch)[0], "Meal not found!")
}

func TestCommandFromPhotoCaption(t *testing.T) {
	ctx := context.Background()
	s, store := newTestState()
	whitelist(t, store, "bob")

	msg := &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{UserName: "bob"},
		Chat:      &tgbotapi.Chat{ID: 1},
		Caption:   "/new Pizza, 3",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
	}
	batch := HandleCommand(ctx, s, msg)
	require.Len(t, batch.Items, 1)

	meals, err := store.GetMealsByName(ctx, "Pizza")
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, 3, meals[0].Rating)
	assert.Equal(t, []string{"large"}, meals[0].Photos, "largest photo size wins")
}

func TestPlainTextIgnored(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestState()
	msg := &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{UserName: "bob"},
		Chat:      &tgbotapi.Chat{ID: 1},
		Text:      "just chatting",
	}
	batch := HandleCommand(ctx, s, msg)
	assert.Empty(t, batch.Items)
}

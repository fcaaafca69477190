package main

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dnlkrs/mealbot/db"
)

// Invocation is the context a click or command arrived with.
type Invocation struct {
	ChatID     int64
	MessageID  int
	CallbackID string
	Username   string
	// HasPhoto: the message being acted on is a photo, so text
	// changes go through the caption.
	HasPhoto bool
}

// Action is one logical thing a button click or command can do. The
// variant set is closed; payloads carry ids and primitives only.
// Execute reads and mutates shared state and returns the outbound
// effects; it never calls the transport itself.
type Action interface {
	Execute(ctx context.Context, s *State, inv Invocation) Batch
}

// editMessage appends a text (or caption) edit of the invoking
// message, with an optional fresh keyboard.
func (b *Batch) editMessage(inv Invocation, text string, kb *Keyboard) *Batch {
	if inv.HasPhoto {
		edit := tgbotapi.NewEditMessageCaption(inv.ChatID, inv.MessageID, text)
		if kb != nil {
			markup := kb.InlineKeyboard()
			edit.ReplyMarkup = &markup
		}
		return b.Add(edit, "edit caption")
	}
	edit := tgbotapi.NewEditMessageText(inv.ChatID, inv.MessageID, text)
	if kb != nil {
		markup := kb.InlineKeyboard()
		edit.ReplyMarkup = &markup
	}
	return b.Add(edit, "edit message")
}

const planQuestion = "Plan:\n(Click to see details)"

// SaveMeal confirms a freshly created meal and strips its buttons.
type SaveMeal struct {
	MealID string
}

func (a SaveMeal) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meal, err := s.store.GetMeal(ctx, a.MealID)
	if err != nil {
		batch.editMessage(inv, "Failed to save, meal not found!", nil)
		return batch
	}
	batch.editMessage(inv, mealText(meal)+"\n\nSaved!", nil)
	return batch
}

// RateMeal sets a rating directly from the star row.
type RateMeal struct {
	MealID string
	Rating int
}

func (a RateMeal) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meal, err := s.store.GetMeal(ctx, a.MealID)
	if err != nil {
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	meal.Rating = a.Rating
	if err := s.store.UpdateMeal(ctx, meal); err != nil {
		logger.Warnw("rate meal", "meal_id", meal.ID, "err", err)
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	kb := s.Register(NewKeyboard(inv.ChatID, [][]Button{
		rateMealRow(meal.ID, meal.Rating),
		{NewButton("Save", SaveMeal{MealID: meal.ID})},
	}))
	batch.editMessage(inv, mealText(meal)+"\n\nChange rating or save your meal!", kb)
	return batch
}

// DeleteMeal removes a meal for good. Replaying it for an id that is
// already gone lands in the not-found branch, never an error.
type DeleteMeal struct {
	MealID string
}

func (a DeleteMeal) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meal, err := s.store.GetMeal(ctx, a.MealID)
	if err != nil {
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	if err := s.store.RemoveMeal(ctx, a.MealID); err != nil {
		// Lost a race with another delete; same outcome for the user.
		if !errors.Is(err, db.ErrNotFound) {
			logger.Warnw("remove meal", "meal_id", a.MealID, "err", err)
		}
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	batch.editMessage(inv, mealText(meal)+"\n\nRemoved!", nil)
	return batch
}

// ShowMealList swaps the message into the clickable meal list.
type ShowMealList struct{}

func (a ShowMealList) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meals, err := s.store.GetMeals(ctx)
	if err != nil {
		logger.Warnw("list meals", "err", err)
		return batch
	}
	if len(meals) == 0 {
		batch.editMessage(inv, "No meals saved!\n(save new meals with /new <meal name>)", nil)
		return batch
	}
	rows := make([][]Button, 0, len(meals))
	for _, meal := range meals {
		rows = append(rows, []Button{NewButton(meal.Name, DisplayMeal{MealID: meal.ID})})
	}
	kb := s.Register(NewKeyboard(inv.ChatID, rows))
	batch.editMessage(inv, "List:", kb)
	return batch
}

// DisplayMeal shows one meal with a way back.
type DisplayMeal struct {
	MealID string
}

func (a DisplayMeal) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meal, err := s.store.GetMeal(ctx, a.MealID)
	if err != nil {
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	kb := s.Register(NewKeyboard(inv.ChatID, [][]Button{{
		NewButton("Back", ShowMealList{}),
		NewButton("Exit", DismissMessage{}),
	}}))
	batch.editMessage(inv, mealText(meal), kb)
	return batch
}

// ShowPlan re-renders the plan grid on the invoking message.
type ShowPlan struct {
	PlanID string
}

func (a ShowPlan) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	plan, ok := s.FindPlan(a.PlanID)
	if !ok {
		batch.editMessage(inv, "Plan not found!\n(generate one with /plan <days>)", nil)
		return batch
	}
	kb := s.Register(planKeyboard(inv.ChatID, plan))
	batch.editMessage(inv, planQuestion, kb)
	return batch
}

// RerollPlan supersedes the plan with a freshly sampled one: the old
// poll message goes away, a new poll with a new grid is sent.
type RerollPlan struct {
	PlanID string
}

func (a RerollPlan) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	plan, ok := s.FindPlan(a.PlanID)
	if !ok {
		batch.editMessage(inv, "Plan not found!\n(generate one with /plan <days>)", nil)
		return batch
	}
	meals, err := s.store.GetMeals(ctx)
	if err != nil {
		logger.Warnw("reroll plan", "err", err)
		return batch
	}
	next := GeneratePlan(inv.ChatID, meals, plan.Days)
	s.RemovePlan(plan.ID)
	s.AddPlan(next)
	dropPlanPoll(s, plan.ID)

	batch.AddRequest(tgbotapi.NewDeleteMessage(inv.ChatID, inv.MessageID), "delete message")
	appendPlanPoll(&batch, s, next)
	return batch
}

// ClearPlanVotes resends the same plan poll, which starts the tallies
// over at zero.
type ClearPlanVotes struct {
	PlanID string
}

func (a ClearPlanVotes) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	plan, ok := s.FindPlan(a.PlanID)
	if !ok {
		batch.editMessage(inv, "Plan not found!\n(generate one with /plan <days>)", nil)
		return batch
	}
	dropPlanPoll(s, plan.ID)
	batch.AddRequest(tgbotapi.NewDeleteMessage(inv.ChatID, inv.MessageID), "delete message")
	appendPlanPoll(&batch, s, plan)
	return batch
}

// ExitPlanPoll tears the plan poll down without touching the plan.
type ExitPlanPoll struct {
	PlanID string
}

func (a ExitPlanPoll) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	dropPlanPoll(s, a.PlanID)
	batch.AddRequest(tgbotapi.NewDeleteMessage(inv.ChatID, inv.MessageID), "delete message")
	return batch
}

// dropPlanPoll forgets the live poll for a plan, if any. Deleting the
// poll message means no close update will arrive to clean it up.
func dropPlanPoll(s *State, planID string) {
	if poll, ok := s.FindPollByPlanID(planID); ok {
		s.RemovePoll(poll.ID)
		s.ConsumeKeyboard(poll.KeyboardID)
	}
}

func appendPlanPoll(batch *Batch, s *State, plan Plan) {
	kb := s.Register(planKeyboard(plan.ChatID, plan))
	cfg := tgbotapi.NewPoll(plan.ChatID, planQuestion, plan.Answers()...)
	cfg.ReplyMarkup = kb.InlineKeyboard()
	batch.AddPoll(cfg, PlanPoll{PlanID: plan.ID}, kb.ID)
}

// StartRatingPoll opens the star poll for a meal, replying to the
// meal message so the outcome can be folded back into it.
type StartRatingPoll struct {
	MealID string
}

func (a StartRatingPoll) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	meal, err := s.store.GetMeal(ctx, a.MealID)
	if err != nil {
		batch.editMessage(inv, "Meal not found!", nil)
		return batch
	}
	batch.editMessage(inv, mealText(meal)+"\n\nVoting...", nil)

	kb := s.Register(NewKeyboard(inv.ChatID, [][]Button{{
		NewButton("Cancel Vote", CancelPollRating{MealID: meal.ID}),
	}}))
	cfg := tgbotapi.NewPoll(inv.ChatID,
		"Rate meal: "+strings.ToUpper(meal.Name), ratingOptions()...)
	cfg.ReplyToMessageID = inv.MessageID
	cfg.ReplyMarkup = kb.InlineKeyboard()
	batch.AddPoll(cfg, MealPoll{MealID: meal.ID, ReplyMessageID: inv.MessageID}, kb.ID)
	return batch
}

// ConfirmPollRating stops the poll; the close update folds the tally
// into the rating.
type ConfirmPollRating struct {
	PollID string
}

func (a ConfirmPollRating) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	poll, ok := s.FindPoll(a.PollID)
	if !ok {
		// Already closed; whichever update won the race did the work.
		return batch
	}
	batch.AddRequest(tgbotapi.NewStopPoll(poll.ChatID, poll.MessageID), "stop poll")
	return batch
}

// CancelPollRating flags the poll canceled and stops it, so the close
// update discards the tallies. Addressed by poll id from swap-built
// keyboards, by meal id from the initial one.
type CancelPollRating struct {
	PollID string
	MealID string
}

func (a CancelPollRating) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	poll, ok := s.FindPoll(a.PollID)
	if !ok && a.MealID != "" {
		poll, ok = s.FindPollByMealID(a.MealID)
	}
	if !ok {
		return batch
	}
	if _, ok := s.CancelPoll(poll.ID); !ok {
		return batch
	}
	batch.AddRequest(tgbotapi.NewStopPoll(poll.ChatID, poll.MessageID), "stop poll")
	return batch
}

// RunNamedCommand replays a chat command from a button.
type RunNamedCommand struct {
	Command string
}

func (a RunNamedCommand) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	return runNamedCommand(ctx, s, inv, a.Command)
}

// PinAnchorMessage pins the invoking message in the chat.
type PinAnchorMessage struct{}

func (a PinAnchorMessage) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	batch.AddRequest(tgbotapi.PinChatMessageConfig{
		ChatID:              inv.ChatID,
		MessageID:           inv.MessageID,
		DisableNotification: true,
	}, "pin message")
	return batch
}

// DismissMessage deletes the invoking message.
type DismissMessage struct{}

func (a DismissMessage) Execute(ctx context.Context, s *State, inv Invocation) Batch {
	var batch Batch
	batch.AddRequest(tgbotapi.NewDeleteMessage(inv.ChatID, inv.MessageID), "delete message")
	return batch
}

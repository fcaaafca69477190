package main

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PollKind says what a chat poll is collecting votes for.
type PollKind interface {
	pollKind() string
}

// MealPoll collects a 1..5 star rating for one meal. ReplyMessageID is
// the meal message the poll was started from; the outcome is folded
// back into an edit of that message.
type MealPoll struct {
	MealID         string `json:"meal_id"`
	ReplyMessageID int    `json:"reply_message_id"`
}

func (MealPoll) pollKind() string { return "meal" }

// PlanPoll collects votes on a generated plan. The votes are display
// only for now, they do not fold into meal ratings.
type PlanPoll struct {
	PlanID string `json:"plan_id"`
}

func (PlanPoll) pollKind() string { return "plan" }

// Poll tracks one live chat poll. KeyboardID is re-pointed on every
// vote tick; the record is dropped when the external poll closes.
type Poll struct {
	ID         string
	ExternalID string
	ChatID     int64
	MessageID  int
	Kind       PollKind
	Canceled   bool
	KeyboardID string
}

type pollJSON struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id"`
	ChatID         int64  `json:"chat_id"`
	MessageID      int    `json:"message_id"`
	Kind           string `json:"kind"`
	MealID         string `json:"meal_id,omitempty"`
	ReplyMessageID int    `json:"reply_message_id,omitempty"`
	PlanID         string `json:"plan_id,omitempty"`
	Canceled       bool   `json:"canceled"`
	KeyboardID     string `json:"keyboard_id"`
}

func (p Poll) MarshalJSON() ([]byte, error) {
	out := pollJSON{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		ChatID:     p.ChatID,
		MessageID:  p.MessageID,
		Canceled:   p.Canceled,
		KeyboardID: p.KeyboardID,
	}
	switch kind := p.Kind.(type) {
	case MealPoll:
		out.Kind = kind.pollKind()
		out.MealID = kind.MealID
		out.ReplyMessageID = kind.ReplyMessageID
	case PlanPoll:
		out.Kind = kind.pollKind()
		out.PlanID = kind.PlanID
	default:
		return nil, fmt.Errorf("unknown poll kind %T", p.Kind)
	}
	return json.Marshal(out)
}

func (p *Poll) UnmarshalJSON(blob []byte) error {
	var in pollJSON
	if err := json.Unmarshal(blob, &in); err != nil {
		return err
	}
	*p = Poll{
		ID:         in.ID,
		ExternalID: in.ExternalID,
		ChatID:     in.ChatID,
		MessageID:  in.MessageID,
		Canceled:   in.Canceled,
		KeyboardID: in.KeyboardID,
	}
	switch in.Kind {
	case "meal":
		p.Kind = MealPoll{MealID: in.MealID, ReplyMessageID: in.ReplyMessageID}
	case "plan":
		p.Kind = PlanPoll{PlanID: in.PlanID}
	default:
		return fmt.Errorf("unknown poll kind %q", in.Kind)
	}
	return nil
}

// pollAverage folds per-option tallies into one star value: option
// index+1 weighted by voters, integer floor.
func pollAverage(options []tgbotapi.PollOption, total int) int {
	if total <= 0 {
		return 0
	}
	sum := 0
	for i, opt := range options {
		sum += (i + 1) * opt.VoterCount
	}
	return sum / total
}

// blendRating damps single-poll swings by averaging with the prior
// rating. An unrated meal collapses to the poll average exactly.
func blendRating(avg, prior int) int {
	if prior == 0 {
		prior = avg
	}
	return (avg + prior) / 2
}

// HandlePollUpdate advances the poll state machine on one update from
// the transport: an intermediate vote tick while the poll is open, or
// the final tally once it closed.
func HandlePollUpdate(ctx context.Context, s *State, upd *tgbotapi.Poll) Batch {
	var batch Batch
	p, ok := s.FindPollByExternalID(upd.ID)
	if !ok {
		logger.Debugw("update for unknown poll", "external_id", upd.ID)
		return batch
	}

	switch kind := p.Kind.(type) {
	case PlanPoll:
		// Display only. Drop the record once the poll is gone.
		if upd.IsClosed {
			s.RemovePoll(p.ID)
			s.ConsumeKeyboard(p.KeyboardID)
		}
		return batch
	case MealPoll:
		return handleMealPollUpdate(ctx, s, p, kind, upd)
	default:
		logger.Warnw("poll with unknown kind", "poll_id", p.ID)
		return batch
	}
}

func handleMealPollUpdate(ctx context.Context, s *State, p Poll, kind MealPoll, upd *tgbotapi.Poll) Batch {
	var batch Batch

	meal, err := s.store.GetMeal(ctx, kind.MealID)
	if err != nil {
		// Meal vanished under the poll. Stop the poll and drop the
		// record, nothing to tell the user.
		logger.Warnw("poll for missing meal", "meal_id", kind.MealID, "err", err)
		s.RemovePoll(p.ID)
		s.ConsumeKeyboard(p.KeyboardID)
		batch.AddRequest(tgbotapi.NewStopPoll(p.ChatID, p.MessageID), "stop poll")
		return batch
	}

	total := upd.TotalVoterCount

	if upd.IsClosed {
		s.RemovePoll(p.ID)
		s.ConsumeKeyboard(p.KeyboardID)

		if total > 0 && !p.Canceled {
			avg := pollAverage(upd.Options, total)
			meal.Rating = blendRating(avg, meal.Rating)
			if err := s.store.UpdateMeal(ctx, meal); err != nil {
				logger.Warnw("update meal rating", "meal_id", meal.ID, "err", err)
			}
			logger.Infow("poll closed", "meal", meal.Name, "rating", meal.Rating)
			batch.Add(tgbotapi.NewEditMessageText(
				p.ChatID, kind.ReplyMessageID, mealText(meal)+"\n\nSaved!"), "edit message")
			return batch
		}

		// Canceled or nobody voted: tallies are discarded, the meal
		// keeps its rating and the original buttons come back.
		logger.Infow("poll ended without rating", "meal", meal.Name)
		kb := s.Register(mealKeyboard(p.ChatID, meal.ID))
		edit := tgbotapi.NewEditMessageText(
			p.ChatID, kind.ReplyMessageID, mealText(meal)+"\n\nPoll canceled!")
		markup := kb.InlineKeyboard()
		edit.ReplyMarkup = &markup
		batch.Add(edit, "edit message")
		batch.AddRequest(tgbotapi.NewDeleteMessage(p.ChatID, p.MessageID), "delete message")
		return batch
	}

	// Intermediate tick: swap the companion keyboard. With votes on
	// the board the user may confirm or cancel; without, only cancel.
	var kb *Keyboard
	if total > 0 {
		kb = NewKeyboard(p.ChatID, [][]Button{{
			NewButton("Save Meal", ConfirmPollRating{PollID: p.ID}),
			NewButton("Cancel", CancelPollRating{PollID: p.ID}),
		}})
	} else {
		kb = NewKeyboard(p.ChatID, [][]Button{{
			NewButton("Cancel Vote", CancelPollRating{PollID: p.ID}),
		}})
	}
	s.Register(kb)
	if !s.RepointPollKeyboard(p.ID, kb.ID) {
		// Poll closed between the lookup and the swap; the new grid
		// must not outlive it.
		s.ConsumeKeyboard(kb.ID)
		return batch
	}
	batch.Add(tgbotapi.NewEditMessageReplyMarkup(
		p.ChatID, p.MessageID, kb.InlineKeyboard()), "edit reply markup")
	return batch
}

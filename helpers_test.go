package main

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dnlkrs/mealbot/db"
)

// fakeSender records every transport call in order and can be told to
// fail specific calls (1-based).
type fakeSender struct {
	calls     []tgbotapi.Chattable
	failCalls map[int]bool
}

func newFakeSender(failCalls ...int) *fakeSender {
	fail := make(map[int]bool, len(failCalls))
	for _, n := range failCalls {
		fail[n] = true
	}
	return &fakeSender{failCalls: fail}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls = append(f.calls, c)
	n := len(f.calls)
	if f.failCalls[n] {
		return tgbotapi.Message{}, fmt.Errorf("forced failure on call %d", n)
	}
	msg := tgbotapi.Message{MessageID: 1000 + n, Chat: &tgbotapi.Chat{ID: 1}}
	if cfg, ok := c.(tgbotapi.SendPollConfig); ok {
		msg.Chat = &tgbotapi.Chat{ID: cfg.ChatID}
		msg.Poll = &tgbotapi.Poll{ID: fmt.Sprintf("ext-%d", n)}
	}
	return msg, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) error {
	f.calls = append(f.calls, c)
	if f.failCalls[len(f.calls)] {
		return fmt.Errorf("forced failure on call %d", len(f.calls))
	}
	return nil
}

func newTestState() (*State, *db.MemStore) {
	store := db.NewMemStore()
	return NewState(store, Config{Name: "mealbot", Password: "hunter2"}), store
}

func testInvocation() Invocation {
	return Invocation{ChatID: 1, MessageID: 42, CallbackID: "cb-1", Username: "bob"}
}

// votes builds the telegram option tallies for a five-star poll.
func votes(counts ...int) []tgbotapi.PollOption {
	opts := make([]tgbotapi.PollOption, 0, len(counts))
	for i, n := range counts {
		opts = append(opts, tgbotapi.PollOption{Text: stars(i + 1), VoterCount: n})
	}
	return opts
}

func total(counts ...int) int {
	sum := 0
	for _, n := range counts {
		sum += n
	}
	return sum
}

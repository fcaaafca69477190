package main

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the slice of the Telegram API the batch executor needs.
// Dispatch never touches it; only Flush does, which keeps every action
// synchronously testable.
type Sender interface {
	// Send executes a request that answers with a Message.
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	// Request executes a request whose result we do not need
	// (deletes, pins, callback answers, poll stops).
	Request(c tgbotapi.Chattable) error
}

type botSender struct {
	api *tgbotapi.BotAPI
}

func (b botSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return b.api.Send(c)
}

func (b botSender) Request(c tgbotapi.Chattable) error {
	_, err := b.api.Request(c)
	return err
}

// pendingPoll is what Flush needs to finalize the Poll record once
// Telegram answers the send with the external poll id.
type pendingPoll struct {
	kind       PollKind
	keyboardID string
}

// Item is one pending outbound effect.
type Item struct {
	config tgbotapi.Chattable
	note   string
	// wantMessage selects Send over Request; the bot API answers
	// some requests with a bare bool that must not be decoded as a
	// Message.
	wantMessage bool
	poll        *pendingPoll
}

// Batch is the ordered list of outbound effects one dispatch call
// produced. Items run in order; a failed item is logged and the rest
// still run.
type Batch struct {
	Items []Item
}

func (b *Batch) Add(c tgbotapi.Chattable, note string) *Batch {
	b.Items = append(b.Items, Item{config: c, note: note, wantMessage: true})
	return b
}

func (b *Batch) AddRequest(c tgbotapi.Chattable, note string) *Batch {
	b.Items = append(b.Items, Item{config: c, note: note})
	return b
}

func (b *Batch) AddPoll(c tgbotapi.SendPollConfig, kind PollKind, keyboardID string) *Batch {
	b.Items = append(b.Items, Item{
		config:      c,
		note:        "send poll",
		wantMessage: true,
		poll:        &pendingPoll{kind: kind, keyboardID: keyboardID},
	})
	return b
}

func (b *Batch) Append(other Batch) *Batch {
	b.Items = append(b.Items, other.Items...)
	return b
}

// Flush executes the batch against the transport. This is the single
// place allowed to log-and-continue; nothing retries.
func (b Batch) Flush(ctx context.Context, s *State, sender Sender) {
	for _, item := range b.Items {
		if !item.wantMessage {
			if err := sender.Request(item.config); err != nil {
				logger.Warnw(item.note, "err", err)
			}
			continue
		}
		msg, err := sender.Send(item.config)
		if err != nil {
			logger.Warnw(item.note, "err", err)
			continue
		}
		if item.poll != nil {
			if msg.Poll == nil {
				logger.Warnw("poll send answered without poll", "message_id", msg.MessageID)
				continue
			}
			s.AddPoll(Poll{
				ID:         newID(),
				ExternalID: msg.Poll.ID,
				ChatID:     msg.Chat.ID,
				MessageID:  msg.MessageID,
				Kind:       item.poll.kind,
				KeyboardID: item.poll.keyboardID,
			})
		}
	}
	if s.config.Checkpoint {
		s.Checkpoint(ctx)
	}
}

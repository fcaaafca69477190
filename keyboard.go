package main

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/xid"
)

// idSeparator splits keyboard id from button id inside callback data.
// Telegram caps callback data at 64 bytes, so ids have to stay short:
// two xids plus the separator come to 41.
const idSeparator = "."

// newID returns a short random token that never contains the
// separator. The xid alphabet (0-9a-v) cannot produce one, but ids
// are load-bearing enough to guard anyway.
func newID() string {
	id := xid.New().String()
	if strings.Contains(id, idSeparator) {
		panic(fmt.Sprintf("generated id %q contains separator", id))
	}
	return id
}

// CorrelationID addresses a single button on a registered keyboard.
// Keyboard is empty for keyboard-less single buttons.
type CorrelationID struct {
	Keyboard string
	Button   string
}

func (c CorrelationID) Format() string {
	return c.Keyboard + idSeparator + c.Button
}

func ParseCorrelationID(data string) (CorrelationID, error) {
	parts := strings.Split(data, idSeparator)
	if len(parts) != 2 || parts[1] == "" {
		return CorrelationID{}, fmt.Errorf("bad callback data %q", data)
	}
	return CorrelationID{Keyboard: parts[0], Button: parts[1]}, nil
}

// Button carries the logical action a click replays. The payload is
// ids and primitives only, never a live reference into shared state.
type Button struct {
	ID         string
	Text       string
	KeyboardID string
	Action     Action
}

func NewButton(text string, action Action) Button {
	return Button{ID: newID(), Text: text, Action: action}
}

func (b Button) callbackData() string {
	return CorrelationID{Keyboard: b.KeyboardID, Button: b.ID}.Format()
}

// Keyboard is a rendered button grid. Buttons get their owning
// keyboard id stamped at construction.
type Keyboard struct {
	ID     string
	ChatID int64
	Rows   [][]Button
}

func NewKeyboard(chatID int64, rows [][]Button) *Keyboard {
	kb := &Keyboard{ID: newID(), ChatID: chatID, Rows: rows}
	for i := range kb.Rows {
		for j := range kb.Rows[i] {
			kb.Rows[i][j].KeyboardID = kb.ID
		}
	}
	return kb
}

func (k *Keyboard) Find(buttonID string) (Button, bool) {
	for _, row := range k.Rows {
		for _, btn := range row {
			if btn.ID == buttonID {
				return btn, true
			}
		}
	}
	return Button{}, false
}

func (k *Keyboard) empty() bool {
	for _, row := range k.Rows {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

func (k *Keyboard) InlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(k.Rows))
	for _, row := range k.Rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(
				strings.ToUpper(btn.Text), btn.callbackData()))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

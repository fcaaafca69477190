package main

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dnlkrs/mealbot/db"
)

// logger is replaced in main; the nop default keeps tests quiet.
var logger = zap.NewNop().Sugar()

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	logger = zl.Sugar()

	ctx := context.Background()

	var store db.Store
	if cfg.MemoryStore {
		logger.Infow("using in-memory store")
		store = db.NewMemStore()
	} else {
		mongo, err := db.Init(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatalw("connect mongo", "err", err)
		}
		defer mongo.Close(ctx)
		store = mongo
	}

	state := NewState(store, cfg)
	if cfg.Checkpoint {
		state.RestoreCheckpoint(ctx)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		logger.Fatalw("create bot", "err", err)
	}
	bot.Debug = cfg.Debug
	logger.Infow("authorized", "account", bot.Self.UserName)

	sender := botSender{api: bot}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	logger.Infow("dispatching updates")
	for update := range updates {
		go handleUpdate(ctx, state, sender, update)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// handleUpdate routes one update by category. Every update runs in
// its own goroutine; there is no per-chat serialization, the shared
// state lock is the only synchronization.
func handleUpdate(ctx context.Context, s *State, sender Sender, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		handleCallback(ctx, s, sender, update.CallbackQuery)
	case update.Poll != nil:
		HandlePollUpdate(ctx, s, update.Poll).Flush(ctx, s, sender)
	case update.InlineQuery != nil:
		HandleInlineQuery(ctx, s, update.InlineQuery).Flush(ctx, s, sender)
	case update.Message != nil:
		msg := update.Message
		if msg.From != nil {
			logger.Debugw("message", "user", msg.From.UserName, "text", msg.Text)
		}
		HandleCommand(ctx, s, msg).Flush(ctx, s, sender)
	}
}

// handleCallback resolves a button click back to its logical action.
// Resolution consumes the keyboard in the same critical section, so a
// redelivered click can at worst see the outdated notice, never run
// the action a second time.
func handleCallback(ctx context.Context, s *State, sender Sender, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Data == "" {
		var batch Batch
		batch.AddRequest(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
		batch.Flush(ctx, s, sender)
		return
	}

	inv := Invocation{
		ChatID:     cb.Message.Chat.ID,
		MessageID:  cb.Message.MessageID,
		CallbackID: cb.ID,
		Username:   cb.From.UserName,
		HasPhoto:   len(cb.Message.Photo) > 0,
	}

	id, err := ParseCorrelationID(cb.Data)
	if err != nil {
		logger.Warnw("bad callback data", "data", cb.Data, "err", err)
		staleClickBatch(cb.ID, inv).Flush(ctx, s, sender)
		return
	}

	btn, ok := s.ResolveAndConsume(id)
	if !ok {
		staleClickBatch(cb.ID, inv).Flush(ctx, s, sender)
		return
	}

	batch := btn.Action.Execute(ctx, s, inv)
	batch.AddRequest(tgbotapi.NewCallback(cb.ID, ""), "answer callback")
	batch.Flush(ctx, s, sender)
}

// staleClickBatch is the deterministic answer to a click whose
// keyboard is gone: an explanatory alert plus removal of the dead
// button row.
func staleClickBatch(callbackID string, inv Invocation) Batch {
	var batch Batch
	batch.AddRequest(tgbotapi.NewCallbackWithAlert(callbackID,
		"Outdated buttons!\nPlease rerun the command."), "answer callback")
	batch.Add(tgbotapi.NewEditMessageReplyMarkup(inv.ChatID, inv.MessageID,
		tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0),
		}), "strip reply markup")
	return batch
}

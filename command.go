package main

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dnlkrs/mealbot/db"
)

const helpText = `These commands are supported:
/help - list all commands
/new <name>, <rating>, <tags>, <url> - save a complete meal
/newmeal <name> - save a meal and rate it right away
/get <name> - get a saved meal's info
/remove <name> - remove a meal by name
/photo <name> - attach the sent photo to a meal
/list - list all saved meals
/plan <days> - plan meals for the given days
/login <password> - get access to the bot`

// newMealArgs is the comma-split argument list of /new:
// name, rating, tags (space separated), url. Only the name is
// required.
type newMealArgs struct {
	Name   string
	Rating int
	Tags   []string
	URL    string
}

func parseNewMealArgs(input string) (newMealArgs, error) {
	parts := strings.Split(input, ",")
	args := newMealArgs{Name: strings.TrimSpace(parts[0])}
	if args.Name == "" {
		return args, errMealName
	}
	if len(parts) > 1 {
		rating, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return args, errRatingNumber
		}
		args.Rating = clampRating(rating)
	}
	if len(parts) > 2 {
		for _, tag := range strings.Fields(parts[2]) {
			args.Tags = append(args.Tags, strings.TrimSpace(tag))
		}
	}
	if len(parts) > 3 {
		args.URL = strings.TrimSpace(parts[3])
	}
	return args, nil
}

var (
	errMealName     = stringError("Provide a meal name!")
	errRatingNumber = stringError("Rating (2nd argument) has to be a number!")
)

type stringError string

func (e stringError) Error() string { return string(e) }

func clampRating(r int) int {
	if r < 1 {
		return 1
	}
	if r > maxRating {
		return maxRating
	}
	return r
}

// commandFromMessage extracts the command word and arguments, also
// for photo messages, where the command sits in the caption.
func commandFromMessage(msg *tgbotapi.Message) (string, string) {
	if msg.IsCommand() {
		return msg.Command(), msg.CommandArguments()
	}
	text := msg.Caption
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, args, _ := strings.Cut(text[1:], " ")
	if at := strings.Index(cmd, "@"); at != -1 {
		cmd = cmd[:at]
	}
	return cmd, args
}

func largestPhotoID(photos []tgbotapi.PhotoSize) string {
	if len(photos) == 0 {
		return ""
	}
	return photos[len(photos)-1].FileID
}

// HandleCommand turns one parsed chat command into a batch. The core
// engine never parses text beyond this glue.
func HandleCommand(ctx context.Context, s *State, msg *tgbotapi.Message) Batch {
	var batch Batch
	cmd, args := commandFromMessage(msg)
	if cmd == "" || msg.From == nil {
		return batch
	}

	chatID := msg.Chat.ID
	username := msg.From.UserName

	if cmd == "login" {
		return handleLogin(ctx, s, chatID, username, args)
	}

	allowed, err := s.store.IsWhitelisted(ctx, username)
	if err != nil {
		logger.Warnw("whitelist lookup", "user", username, "err", err)
		return batch
	}
	if !allowed {
		logger.Infow("ignoring command from unknown user", "user", username, "command", cmd)
		return batch
	}

	switch cmd {
	case "help", "start":
		batch.Add(tgbotapi.NewMessage(chatID, helpText), "send message")

	case "new":
		parsed, err := parseNewMealArgs(args)
		if err != nil {
			batch.Add(tgbotapi.NewMessage(chatID, err.Error()), "send message")
			return batch
		}
		meal := db.NewMeal(parsed.Name)
		meal.Rating = parsed.Rating
		meal.Tags = parsed.Tags
		meal.URL = parsed.URL
		if photoID := largestPhotoID(msg.Photo); photoID != "" {
			meal.Photos = append(meal.Photos, photoID)
		}
		if err := s.store.AddMeal(ctx, meal); err != nil {
			logger.Warnw("add meal", "name", meal.Name, "err", err)
			return batch
		}
		kb := s.Register(mealKeyboard(chatID, meal.ID))
		reply := tgbotapi.NewMessage(chatID, mealText(meal))
		reply.ReplyMarkup = kb.InlineKeyboard()
		batch.Add(reply, "send message")

	case "newmeal":
		name := strings.TrimSpace(args)
		if name == "" {
			batch.Add(tgbotapi.NewMessage(chatID, errMealName.Error()), "send message")
			return batch
		}
		meal := db.NewMeal(name)
		if err := s.store.AddMeal(ctx, meal); err != nil {
			logger.Warnw("add meal", "name", meal.Name, "err", err)
			return batch
		}
		kb := s.Register(NewKeyboard(chatID, [][]Button{
			rateMealRow(meal.ID, 0),
			{NewButton("Save", SaveMeal{MealID: meal.ID})},
		}))
		reply := tgbotapi.NewMessage(chatID, mealText(meal)+"\n\nHow did it taste?")
		reply.ReplyMarkup = kb.InlineKeyboard()
		batch.Add(reply, "send message")

	case "get":
		name := strings.TrimSpace(args)
		meals, err := s.store.GetMealsByName(ctx, name)
		if err != nil {
			logger.Warnw("get meal", "name", name, "err", err)
			return batch
		}
		if len(meals) == 0 {
			batch.Add(tgbotapi.NewMessage(chatID,
				strings.ToUpper(name)+"\n\nMeal not found!"), "send message")
			return batch
		}
		for _, meal := range meals {
			batch.Append(sendMeal(chatID, meal, ""))
		}

	case "photo":
		name := strings.TrimSpace(args)
		photoID := largestPhotoID(msg.Photo)
		if photoID == "" {
			batch.Add(tgbotapi.NewMessage(chatID, "Attach a photo to this command!"), "send message")
			return batch
		}
		meals, err := s.store.GetMealsByName(ctx, name)
		if err != nil {
			logger.Warnw("get meal", "name", name, "err", err)
			return batch
		}
		if len(meals) == 0 {
			batch.Add(tgbotapi.NewMessage(chatID,
				"No meal with name "+name), "send message")
			return batch
		}
		for _, meal := range meals {
			meal.Photos = append(meal.Photos, photoID)
			if err := s.store.UpdateMeal(ctx, meal); err != nil {
				logger.Warnw("attach photo", "meal_id", meal.ID, "err", err)
				continue
			}
			batch.Append(sendMeal(chatID, meal, "Saved new photo!"))
		}

	case "remove":
		name := strings.TrimSpace(args)
		meals, err := s.store.GetMealsByName(ctx, name)
		if err != nil {
			logger.Warnw("remove meal", "name", name, "err", err)
			return batch
		}
		if len(meals) == 0 {
			batch.Add(tgbotapi.NewMessage(chatID,
				strings.ToUpper(name)+"\n\nMeal not found!"), "send message")
			return batch
		}
		for _, meal := range meals {
			if err := s.store.RemoveMeal(ctx, meal.ID); err != nil {
				logger.Warnw("remove meal", "meal_id", meal.ID, "err", err)
				continue
			}
			batch.Append(sendMeal(chatID, meal, "Removed!"))
		}

	case "list":
		batch.Append(sendMealList(ctx, s, chatID))

	case "plan":
		days, err := strconv.Atoi(strings.TrimSpace(args))
		if err != nil {
			batch.Add(tgbotapi.NewMessage(chatID,
				"How many days? (/plan <days>)"), "send message")
			return batch
		}
		if err := ValidateDays(days); err != nil {
			batch.Add(tgbotapi.NewMessage(chatID, err.Error()), "send message")
			return batch
		}
		meals, err := s.store.GetMeals(ctx)
		if err != nil {
			logger.Warnw("plan meals", "err", err)
			return batch
		}
		if len(meals) == 0 {
			batch.Add(tgbotapi.NewMessage(chatID,
				"No meals saved!\n(save new meals with /new <meal name>)"), "send message")
			return batch
		}
		plan := GeneratePlan(chatID, meals, days)
		s.AddPlan(plan)
		appendPlanPoll(&batch, s, plan)

	default:
		batch.Add(tgbotapi.NewMessage(chatID,
			"Unknown command, try /help"), "send message")
	}
	return batch
}

func handleLogin(ctx context.Context, s *State, chatID int64, username, password string) Batch {
	var batch Batch
	if strings.TrimSpace(password) != s.config.Password {
		batch.Add(tgbotapi.NewMessage(chatID, "Wrong password!"), "send message")
		return batch
	}
	if err := s.store.WhitelistUser(ctx, username); err != nil {
		logger.Warnw("whitelist user", "user", username, "err", err)
		return batch
	}
	logger.Infow("whitelisted user", "user", username)
	batch.Add(tgbotapi.NewMessage(chatID, "Welcome! Try /help."), "send message")
	return batch
}

// sendMeal answers with the meal's photo when it has one, plain text
// otherwise. The suffix goes under the meal text ("Removed!" etc).
func sendMeal(chatID int64, meal db.Meal, suffix string) Batch {
	var batch Batch
	text := mealText(meal)
	if suffix != "" {
		text += "\n\n" + suffix
	}
	if len(meal.Photos) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(meal.Photos[0]))
		photo.Caption = text
		batch.Add(photo, "send photo")
		return batch
	}
	batch.Add(tgbotapi.NewMessage(chatID, text), "send message")
	return batch
}

func sendMealList(ctx context.Context, s *State, chatID int64) Batch {
	var batch Batch
	meals, err := s.store.GetMeals(ctx)
	if err != nil {
		logger.Warnw("list meals", "err", err)
		return batch
	}
	if len(meals) == 0 {
		batch.Add(tgbotapi.NewMessage(chatID,
			"No meals saved!\n(save new meals with /new <meal name>)"), "send message")
		return batch
	}
	rows := make([][]Button, 0, len(meals))
	for _, meal := range meals {
		rows = append(rows, []Button{NewButton(meal.Name, DisplayMeal{MealID: meal.ID})})
	}
	kb := s.Register(NewKeyboard(chatID, rows))
	msg := tgbotapi.NewMessage(chatID, "List:")
	msg.ReplyMarkup = kb.InlineKeyboard()
	batch.Add(msg, "send message")
	return batch
}

// runNamedCommand backs the RunNamedCommand button variant: a small
// set of commands that make sense without arguments.
func runNamedCommand(ctx context.Context, s *State, inv Invocation, name string) Batch {
	switch name {
	case "list":
		return sendMealList(ctx, s, inv.ChatID)
	case "help":
		var batch Batch
		batch.Add(tgbotapi.NewMessage(inv.ChatID, helpText), "send message")
		return batch
	default:
		logger.Warnw("unknown named command", "command", name)
		return Batch{}
	}
}

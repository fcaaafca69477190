package main

import (
	"fmt"
	"strings"

	"github.com/dnlkrs/mealbot/db"
)

const maxRating = 5

func stars(n int) string {
	return strings.Repeat("⭐", n)
}

// mealText renders a meal the way it shows up in chat: name, star
// row, tags, url.
func mealText(m db.Meal) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(m.Name))
	if m.Rated() {
		b.WriteString("\n")
		b.WriteString(stars(m.Rating))
	}
	if len(m.Tags) > 0 {
		b.WriteString("\n\n| ")
		b.WriteString(strings.Join(m.Tags, " | "))
		b.WriteString(" |")
	}
	if m.URL != "" {
		fmt.Fprintf(&b, "\n\n(%s)", m.URL)
	}
	return b.String()
}

// rateMealRow is the five-button star row. Filled stars up to the
// current rating, dots after.
func rateMealRow(mealID string, current int) []Button {
	row := make([]Button, 0, maxRating)
	for r := 1; r <= maxRating; r++ {
		label := "⭐"
		if r > current {
			label = "⚫"
		}
		row = append(row, NewButton(label, RateMeal{MealID: mealID, Rating: r}))
	}
	return row
}

func saveMealRow(mealID string) []Button {
	return []Button{
		NewButton("Ok", DismissMessage{}),
		NewButton("Remove", DeleteMeal{MealID: mealID}),
	}
}

func ratingPollRow(mealID string) []Button {
	return []Button{NewButton("Rate with Poll", StartRatingPoll{MealID: mealID})}
}

// mealKeyboard is the default grid under a freshly shown meal.
func mealKeyboard(chatID int64, mealID string) *Keyboard {
	return NewKeyboard(chatID, [][]Button{
		ratingPollRow(mealID),
		saveMealRow(mealID),
	})
}

func ratingOptions() []string {
	opts := make([]string, 0, maxRating)
	for r := 1; r <= maxRating; r++ {
		opts = append(opts, stars(r))
	}
	return opts
}

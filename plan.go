package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/dnlkrs/mealbot/db"
)

const (
	minPlanDays = 2
	maxPlanDays = 10
)

// ErrDayCount is surfaced verbatim to the user; an out-of-range wish
// is rejected, never silently clamped.
var ErrDayCount = fmt.Errorf("a plan needs between %d and %d days", minPlanDays, maxPlanDays)

// Plan is a generated meal sequence. Built once, never edited; a
// reroll produces a fresh plan that supersedes this one.
type Plan struct {
	ID     string
	ChatID int64
	Days   int
	Meals  []db.Meal
}

func ValidateDays(days int) error {
	if days < minPlanDays || days > maxPlanDays {
		return ErrDayCount
	}
	return nil
}

// GeneratePlan samples days meals without replacement, selection
// probability proportional to rating (unrated meals weigh 1, never
// zero). Fewer candidates than days degrades to the drawable size.
func GeneratePlan(chatID int64, meals []db.Meal, days int) Plan {
	return generatePlan(rand.New(rand.NewSource(rand.Int63())), chatID, meals, days)
}

func generatePlan(rng *rand.Rand, chatID int64, meals []db.Meal, days int) Plan {
	pool := append([]db.Meal(nil), meals...)
	picked := make([]db.Meal, 0, days)

	for len(picked) < days && len(pool) > 0 {
		total := 0
		for _, m := range pool {
			total += mealWeight(m)
		}
		n := rng.Intn(total)
		for i, m := range pool {
			n -= mealWeight(m)
			if n < 0 {
				picked = append(picked, m)
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}

	return Plan{
		ID:     newID(),
		ChatID: chatID,
		Days:   len(picked),
		Meals:  picked,
	}
}

func mealWeight(m db.Meal) int {
	if m.Rated() {
		return m.Rating
	}
	return 1
}

// Answers are the poll options, one per planned meal.
func (p Plan) Answers() []string {
	opts := make([]string, 0, len(p.Meals))
	for _, m := range p.Meals {
		rating := m.Rating
		if rating == 0 {
			rating = 1
		}
		opts = append(opts, fmt.Sprintf("%s (%d⭐)", strings.ToUpper(m.Name), rating))
	}
	return opts
}

// planKeyboard is the grid under a plan poll: one button per meal plus
// the reroll/clear/exit row.
func planKeyboard(chatID int64, p Plan) *Keyboard {
	rows := make([][]Button, 0, len(p.Meals)+1)
	for _, m := range p.Meals {
		rows = append(rows, []Button{NewButton(m.Name, DisplayMeal{MealID: m.ID})})
	}
	rows = append(rows, []Button{
		NewButton("Reroll", RerollPlan{PlanID: p.ID}),
		NewButton("Clear", ClearPlanVotes{PlanID: p.ID}),
		NewButton("Exit", ExitPlanPoll{PlanID: p.ID}),
	})
	return NewKeyboard(chatID, rows)
}

package main

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// HandleInlineQuery fuzzy-matches saved meals against the typed query
// and answers with article (or cached photo) results.
func HandleInlineQuery(ctx context.Context, s *State, q *tgbotapi.InlineQuery) Batch {
	var batch Batch
	meals, err := s.store.GetMeals(ctx)
	if err != nil {
		logger.Warnw("inline query", "err", err)
		return batch
	}

	var results []interface{}
	for _, meal := range meals {
		if q.Query != "" && !fuzzy.MatchFold(q.Query, meal.Name) {
			continue
		}
		if len(meal.Photos) > 0 {
			photo := tgbotapi.NewInlineQueryResultCachedPhoto(meal.ID, meal.Photos[0])
			photo.Title = meal.Name
			photo.Caption = mealText(meal)
			results = append(results, photo)
			continue
		}
		article := tgbotapi.NewInlineQueryResultArticle(meal.ID, meal.Name, mealText(meal))
		article.Description = mealText(meal)
		results = append(results, article)
	}

	batch.AddRequest(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     1,
	}, "answer inline query")
	return batch
}

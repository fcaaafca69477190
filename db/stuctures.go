package db

import (
	"context"
	"errors"

	"github.com/rs/xid"
)

// Meal is the persisted record. Rating 0 means unrated.
type Meal struct {
	ID     string   `bson:"id" json:"id"`
	Name   string   `bson:"name" json:"name"`
	Rating int      `bson:"rating,omitempty" json:"rating,omitempty"`
	Tags   []string `bson:"tags,omitempty" json:"tags,omitempty"`
	URL    string   `bson:"url,omitempty" json:"url,omitempty"`
	Photos []string `bson:"photos,omitempty" json:"photos,omitempty"`
}

func NewMeal(name string) Meal {
	return Meal{ID: xid.New().String(), Name: name}
}

func (m Meal) Rated() bool {
	return m.Rating > 0
}

// ErrNotFound is returned for lookups of records that do not exist
// or no longer exist.
var ErrNotFound = errors.New("not found")

// Store is the durable store. All calls block and must happen outside
// the shared in-memory state lock.
type Store interface {
	AddMeal(ctx context.Context, meal Meal) error
	GetMeal(ctx context.Context, id string) (Meal, error)
	GetMeals(ctx context.Context) ([]Meal, error)
	GetMealsByName(ctx context.Context, name string) ([]Meal, error)
	UpdateMeal(ctx context.Context, meal Meal) error
	RemoveMeal(ctx context.Context, id string) error

	WhitelistUser(ctx context.Context, username string) error
	IsWhitelisted(ctx context.Context, username string) (bool, error)

	SaveCheckpoint(ctx context.Context, blob []byte) error
	LoadCheckpoint(ctx context.Context) ([]byte, error)
}

package db

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// DataBase is the Mongo-backed Store. One collection per concern.
type DataBase struct {
	client    *mongo.Client
	meals     *mongo.Collection
	whitelist *mongo.Collection
	state     *mongo.Collection
}

func Init(ctx context.Context, uri, database string) (*DataBase, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	d := client.Database(database)
	return &DataBase{
		client:    client,
		meals:     d.Collection("meals"),
		whitelist: d.Collection("whitelist"),
		state:     d.Collection("state"),
	}, nil
}

func (db *DataBase) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DataBase) AddMeal(ctx context.Context, meal Meal) error {
	_, err := db.meals.InsertOne(ctx, meal)
	return err
}

func (db *DataBase) GetMeal(ctx context.Context, id string) (Meal, error) {
	var meal Meal
	err := db.meals.FindOne(ctx, bson.M{"id": id}).Decode(&meal)
	if err == mongo.ErrNoDocuments {
		return Meal{}, ErrNotFound
	}
	return meal, err
}

func (db *DataBase) GetMeals(ctx context.Context) ([]Meal, error) {
	cur, err := db.meals.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var meals []Meal
	if err := cur.All(ctx, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

// GetMealsByName matches case-insensitively, the same way meals are
// addressed in chat.
func (db *DataBase) GetMealsByName(ctx context.Context, name string) ([]Meal, error) {
	all, err := db.GetMeals(ctx)
	if err != nil {
		return nil, err
	}
	var meals []Meal
	for _, meal := range all {
		if strings.EqualFold(meal.Name, name) {
			meals = append(meals, meal)
		}
	}
	return meals, nil
}

func (db *DataBase) UpdateMeal(ctx context.Context, meal Meal) error {
	res, err := db.meals.ReplaceOne(ctx, bson.M{"id": meal.ID}, meal)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DataBase) RemoveMeal(ctx context.Context, id string) error {
	res, err := db.meals.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DataBase) WhitelistUser(ctx context.Context, username string) error {
	opts := options.Update().SetUpsert(true)
	_, err := db.whitelist.UpdateOne(ctx,
		bson.M{"user_name": username},
		bson.M{"$set": bson.M{"user_name": username}},
		opts)
	return err
}

func (db *DataBase) IsWhitelisted(ctx context.Context, username string) (bool, error) {
	err := db.whitelist.FindOne(ctx, bson.M{"user_name": username}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveCheckpoint overwrites the single state document. The checkpoint
// is best-effort; a stale one only costs some outdated-button answers
// after a restart.
func (db *DataBase) SaveCheckpoint(ctx context.Context, blob []byte) error {
	opts := options.Update().SetUpsert(true)
	_, err := db.state.UpdateOne(ctx,
		bson.M{"key": "state"},
		bson.M{"$set": bson.M{"key": "state", "blob": blob}},
		opts)
	return err
}

func (db *DataBase) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	var doc struct {
		Blob []byte `bson:"blob"`
	}
	err := db.state.FindOne(ctx, bson.M{"key": "state"}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Blob, nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/logger"
)

type GoalRepository interface {
	GetGoal(ctx context.Context, id string) (*models.ReadingGoal, error)
	// SaveGoal upserts the goal target and reports whether the write created
	// a new goal document.
	SaveGoal(ctx context.Context, goal *models.ReadingGoal) (bool, error)
	// IncrementGoalProgress atomically advances an existing goal and returns
	// the updated document, or nil when no goal with that id exists.
	IncrementGoalProgress(ctx context.Context, id string, delta int) (*models.ReadingGoal, error)
}

type goalRepository struct {
	db *database.DB
}

func NewGoalRepository(db *database.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) coll() *mongo.Collection {
	return r.db.Collection(database.CollReadingGoals)
}

func (r *goalRepository) GetGoal(ctx context.Context, id string) (*models.ReadingGoal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	goal := new(models.ReadingGoal)
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(goal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Entity: "ReadingGoal", ID: id}
		}
		return nil, &RepositoryError{Operation: "GetGoal", Entity: "ReadingGoal", Err: err}
	}
	return goal, nil
}

// SaveGoal upserts the goal target. Progress already earned within the
// period survives a target change.
func (r *goalRepository) SaveGoal(ctx context.Context, goal *models.ReadingGoal) (created bool, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("SaveGoal", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"user_id":    goal.UserID,
			"type":       goal.Type,
			"year":       goal.Year,
			"month":      goal.Month,
			"goal":       goal.Goal,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"progress":   0,
			"created_at": now,
		},
	}

	result, err := r.coll().UpdateOne(ctx, bson.M{"_id": goal.ID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return false, &RepositoryError{Operation: "SaveGoal", Entity: "ReadingGoal", Err: err}
	}
	return result.UpsertedCount > 0, nil
}

func (r *goalRepository) IncrementGoalProgress(ctx context.Context, id string, delta int) (goal *models.ReadingGoal, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("IncrementGoalProgress", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"progress": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	goal = new(models.ReadingGoal)
	err = r.coll().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(goal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, &RepositoryError{Operation: "IncrementGoalProgress", Entity: "ReadingGoal", Err: err}
	}
	return goal, nil
}

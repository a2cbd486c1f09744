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

type ProgressRepository interface {
	GetTotalXP(ctx context.Context, userID string) (int64, error)
	// IncrementTotalXP atomically adds delta to the user's XP counter and
	// returns the new total. This is the single point where concurrent
	// completions for one user converge, so it must never read-modify-write.
	IncrementTotalXP(ctx context.Context, userID string, delta int64) (int64, error)
}

type progressRepository struct {
	db *database.DB
}

func NewProgressRepository(db *database.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) coll() *mongo.Collection {
	return r.db.Collection(database.CollUserProgress)
}

func (r *progressRepository) GetTotalXP(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	progress := new(models.UserProgress)
	err := r.coll().FindOne(ctx, bson.M{"_id": userID}).Decode(progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// A user with no counter document simply hasn't earned XP yet.
			return 0, nil
		}
		return 0, &RepositoryError{Operation: "GetTotalXP", Entity: "UserProgress", Err: err}
	}
	return progress.TotalXP, nil
}

func (r *progressRepository) IncrementTotalXP(ctx context.Context, userID string, delta int64) (total int64, err error) {
	start := time.Now()
	defer func() { logger.LogQuery("IncrementTotalXP", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"total_xp": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	progress := new(models.UserProgress)
	err = r.coll().FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(progress)
	if err != nil {
		return 0, &RepositoryError{Operation: "IncrementTotalXP", Entity: "UserProgress", Err: err}
	}
	return progress.TotalXP, nil
}

package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/models"
	"github.com/kitaplik/portal/kitaplik/logger"
)

type AchievementRepository interface {
	GetUserAchievements(ctx context.Context, userID string) ([]*models.UserAchievement, error)
	PutUserAchievement(ctx context.Context, achievement *models.UserAchievement) error
}

type achievementRepository struct {
	db *database.DB
}

func NewAchievementRepository(db *database.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) coll() *mongo.Collection {
	return r.db.Collection(database.CollUserAchievements)
}

func (r *achievementRepository) GetUserAchievements(ctx context.Context, userID string) ([]*models.UserAchievement, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.coll().Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "level", Value: 1}}))
	if err != nil {
		return nil, &RepositoryError{Operation: "GetUserAchievements", Entity: "UserAchievement", Err: err}
	}
	defer cursor.Close(ctx)

	var achievements []*models.UserAchievement
	if err := cursor.All(ctx, &achievements); err != nil {
		return nil, &RepositoryError{Operation: "GetUserAchievements", Entity: "UserAchievement", Err: err}
	}
	return achievements, nil
}

// PutUserAchievement inserts a granted achievement. The unique
// (user_id, title) index turns a racing double-grant into a ConflictError,
// which callers treat as already-granted.
func (r *achievementRepository) PutUserAchievement(ctx context.Context, achievement *models.UserAchievement) (err error) {
	start := time.Now()
	defer func() { logger.LogQuery("PutUserAchievement", time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll().InsertOne(ctx, achievement); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ConflictError{Entity: "UserAchievement", Field: "title", Value: achievement.Title}
		}
		return &RepositoryError{Operation: "PutUserAchievement", Entity: "UserAchievement", Err: err}
	}
	return nil
}
